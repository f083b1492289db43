// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package orchestrator

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/exp/maps"

	"github.com/trench-labs/trenchsniper/policy"
)

// Kind distinguishes the three session flavors.
type Kind uint8

const (
	Volume Kind = iota + 1
	Bot
	Activity
)

func (k Kind) String() string {
	switch k {
	case Volume:
		return "volume"
	case Bot:
		return "bot"
	case Activity:
		return "activity"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func ParseKind(s string) (Kind, error) {
	switch s {
	case "volume":
		return Volume, nil
	case "bot":
		return Bot, nil
	case "activity":
		return Activity, nil
	default:
		return 0, fmt.Errorf("unknown session kind %q", s)
	}
}

// Stats counts a session's trade outcomes. Counters only ever increase;
// Executed always equals Successful + Failed.
type Stats struct {
	Executed   uint64  `json:"executed"`
	Successful uint64  `json:"successful"`
	Failed     uint64  `json:"failed"`
	VolumeSol  float64 `json:"volumeSol"`
}

// Status is a point-in-time snapshot of one session.
type Status struct {
	ID        string             `json:"id"`
	Kind      Kind               `json:"kind"`
	Target    string             `json:"target"`
	BotName   string             `json:"botName,omitempty"`
	Wallets   []solana.PublicKey `json:"wallets"`
	Running   bool               `json:"running"`
	StartedAt time.Time          `json:"startedAt"`
	EndAt     time.Time          `json:"endAt,omitempty"`
	Stats     Stats              `json:"stats"`
}

// session is one registered trading session. The orchestrator's registry
// lock protects the registry map; this lock protects the session's mutable
// fields. Lock order is always registry then session.
type session struct {
	id        string
	kind      Kind
	target    solana.PublicKey
	botName   string
	wallets   []solana.PublicKey
	preset    policy.Preset
	startedAt time.Time
	endAt     time.Time

	loopCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	lock    sync.Mutex
	running bool
	stats   Stats
	// held tracks token mints this session has bought, for stop-time
	// cleanup sells.
	held map[solana.PublicKey]struct{}
}

func newSessionID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func (s *session) isRunning() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.running
}

// halt flips the running flag and cancels the loop context. Safe to call
// more than once.
func (s *session) halt() {
	s.lock.Lock()
	s.running = false
	s.lock.Unlock()

	s.cancel()
}

func (s *session) recordSuccess(volumeSol float64) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.stats.Executed++
	s.stats.Successful++
	s.stats.VolumeSol += volumeSol
}

func (s *session) recordFailure() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.stats.Executed++
	s.stats.Failed++
}

func (s *session) noteHeld(mint solana.PublicKey) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.held[mint] = struct{}{}
}

func (s *session) heldMints() []solana.PublicKey {
	s.lock.Lock()
	defer s.lock.Unlock()

	return maps.Keys(s.held)
}

func (s *session) snapshot() Status {
	s.lock.Lock()
	defer s.lock.Unlock()

	target := s.target.String()
	if s.kind == Activity {
		target = activityTarget
	}
	return Status{
		ID:        s.id,
		Kind:      s.kind,
		Target:    target,
		BotName:   s.botName,
		Wallets:   append([]solana.PublicKey(nil), s.wallets...),
		Running:   s.running,
		StartedAt: s.startedAt,
		EndAt:     s.endAt,
		Stats:     s.stats,
	}
}
