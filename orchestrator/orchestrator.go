// Copyright (C) 2024-2026, Trench Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/trench-labs/trenchsniper/chain"
	"github.com/trench-labs/trenchsniper/dex"
	"github.com/trench-labs/trenchsniper/launchpad"
	"github.com/trench-labs/trenchsniper/policy"
	"github.com/trench-labs/trenchsniper/treasury"
	"github.com/trench-labs/trenchsniper/utils/sampler"
	"github.com/trench-labs/trenchsniper/utils/timer/mockable"
	"github.com/trench-labs/trenchsniper/vault"
)

var (
	ErrAlreadyRunning = errors.New("a session of this kind is already running")
	ErrGroupLimit     = errors.New("too many bot sessions are running")
	ErrDuplicateName  = errors.New("a bot with this name is already running")
	ErrNotFound       = errors.New("no such session")
	ErrInvalidSpec    = errors.New("invalid session spec")

	errNoWallets        = errors.New("no wallets available for the session")
	errNoFundedWallets  = errors.New("no wallet could be funded")
	errLaunchNotWired   = errors.New("token launching is not configured")
	errNothingToSell    = errors.New("wallet holds none of the token")
	errNoTreasuryWallet = errors.New("no treasury wallet configured")
)

const (
	defaultMaxRunningBots     = 6
	defaultMaxConcurrentSwaps = 8
	maxActivityDuration       = 48 * time.Hour

	// Activity transfers move a token amount small enough to read as an
	// organic wallet-to-wallet payment.
	transferMinSol = 0.001
	transferMaxSol = 0.005

	cleanupTimeout = 2 * time.Minute
)

// DefaultActivityTokens are liquid tokens activity sessions rotate through.
var DefaultActivityTokens = []solana.PublicKey{
	solana.MustPublicKeyFromBase58("DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"), // BONK
	solana.MustPublicKeyFromBase58("EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm"), // WIF
	solana.MustPublicKeyFromBase58("4k3Dyjzvzp8eMZWUXbBCjEvwSkkk59S5iCNLY3QrkX6R"), // RAY
}

type Config struct {
	// TreasuryAddress funds bot wallets and receives sweeps. Must be a
	// vault wallet.
	TreasuryAddress solana.PublicKey

	SlippageBps              uint64
	PriorityFeeMicroLamports uint64

	// MaxConcurrentSwaps caps in-flight swap submissions across every
	// session; upstream RPC providers rate limit well below what a few
	// hundred loops could generate.
	MaxConcurrentSwaps int64
	MaxRunningBots     int

	Presets        policy.Table
	ActivityTokens []solana.PublicKey
}

func DefaultConfig() Config {
	return Config{
		SlippageBps:        500,
		MaxConcurrentSwaps: defaultMaxConcurrentSwaps,
		MaxRunningBots:     defaultMaxRunningBots,
		Presets:            policy.DefaultTable(),
		ActivityTokens:     DefaultActivityTokens,
	}
}

// Orchestrator owns the session registry and every per-wallet trade loop.
// Callers poll it for status; it emits no events.
type Orchestrator struct {
	log      *zap.Logger
	cfg      Config
	chain    chain.Client
	wallets  WalletStore
	router   TradeRouter
	fees     FeeCollector
	treasury TreasuryMover
	launcher TokenLauncher
	launches LaunchRegistry

	clock   mockable.Clock
	rng     *sampler.Source
	swapSem *semaphore.Weighted
	metrics *metrics

	// lock guards the registry map. Lock order is registry then session;
	// never hold it across network I/O.
	lock     sync.Mutex
	sessions map[string]*session
}

func New(
	log *zap.Logger,
	cfg Config,
	chainClient chain.Client,
	wallets WalletStore,
	router TradeRouter,
	fees FeeCollector,
	mover TreasuryMover,
	launcher TokenLauncher,
	launches LaunchRegistry,
	registerer prometheus.Registerer,
) (*Orchestrator, error) {
	if cfg.MaxConcurrentSwaps <= 0 {
		cfg.MaxConcurrentSwaps = defaultMaxConcurrentSwaps
	}
	if cfg.MaxRunningBots <= 0 {
		cfg.MaxRunningBots = defaultMaxRunningBots
	}
	if len(cfg.ActivityTokens) == 0 {
		cfg.ActivityTokens = DefaultActivityTokens
	}

	m, err := newMetrics("trenchsniper", registerer)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		log:      log,
		cfg:      cfg,
		chain:    chainClient,
		wallets:  wallets,
		router:   router,
		fees:     fees,
		treasury: mover,
		launcher: launcher,
		launches: launches,
		rng:      sampler.NewSource(time.Now().UnixNano()),
		swapSem:  semaphore.NewWeighted(cfg.MaxConcurrentSwaps),
		metrics:  m,
		sessions: make(map[string]*session),
	}, nil
}

// VolumeSpec starts trade loops against one token using existing vault
// wallets. Zero bounds fall back to the volume preset.
type VolumeSpec struct {
	Token       solana.PublicKey
	MaxWallets  int
	MinSwapSol  float64
	MaxSwapSol  float64
	MinInterval time.Duration
	MaxInterval time.Duration
}

func (o *Orchestrator) StartVolume(spec VolumeSpec) (Status, error) {
	if spec.Token.IsZero() || spec.MaxWallets <= 0 {
		return Status{}, fmt.Errorf("%w: volume needs a token and a wallet count", ErrInvalidSpec)
	}

	preset := o.cfg.Presets.Volume
	if spec.MinSwapSol > 0 {
		preset.MinSwapSol = spec.MinSwapSol
	}
	if spec.MaxSwapSol > 0 {
		preset.MaxSwapSol = spec.MaxSwapSol
	}
	if spec.MinInterval > 0 {
		preset.MinInterval = spec.MinInterval
	}
	if spec.MaxInterval > 0 {
		preset.MaxInterval = spec.MaxInterval
	}

	wallets := o.wallets.Addresses()
	if len(wallets) == 0 {
		return Status{}, errNoWallets
	}
	if len(wallets) > spec.MaxWallets {
		wallets = wallets[:spec.MaxWallets]
	}

	o.lock.Lock()
	defer o.lock.Unlock()

	if o.runningOfKindLocked(Volume) > 0 {
		return Status{}, ErrAlreadyRunning
	}

	s := o.registerLocked(&session{
		kind:    Volume,
		target:  spec.Token,
		wallets: wallets,
		preset:  preset,
	})
	o.spawnLoops(s)
	return s.snapshot(), nil
}

// BotSpec launches a named group of fresh burner wallets against one token.
type BotSpec struct {
	Name         string
	Token        solana.PublicKey
	WalletCount  int
	SolPerWallet float64
	Intensity    policy.Intensity
}

func (o *Orchestrator) StartBot(ctx context.Context, spec BotSpec) (Status, error) {
	if spec.Name == "" || spec.Token.IsZero() || spec.WalletCount <= 0 || spec.SolPerWallet <= 0 {
		return Status{}, fmt.Errorf("%w: bot needs a name, token, wallet count and funding amount", ErrInvalidSpec)
	}
	if o.cfg.TreasuryAddress.IsZero() {
		return Status{}, errNoTreasuryWallet
	}
	preset, ok := o.cfg.Presets.Bot[spec.Intensity]
	if !ok {
		return Status{}, fmt.Errorf("%w: unknown intensity", ErrInvalidSpec)
	}

	// Register before funding so the name and group slot are reserved
	// without holding the registry lock across network I/O.
	o.lock.Lock()
	for _, s := range o.sessions {
		if s.kind == Bot && s.botName == spec.Name && s.isRunning() {
			o.lock.Unlock()
			return Status{}, fmt.Errorf("%w: %q", ErrDuplicateName, spec.Name)
		}
	}
	if o.runningOfKindLocked(Bot) >= o.cfg.MaxRunningBots {
		o.lock.Unlock()
		return Status{}, ErrGroupLimit
	}
	s := o.registerLocked(&session{
		kind:    Bot,
		target:  spec.Token,
		botName: spec.Name,
		preset:  preset,
	})
	o.lock.Unlock()

	status, err := o.fundBot(ctx, s, spec)
	if err != nil {
		o.unregister(s)
		return Status{}, err
	}
	return status, nil
}

func (o *Orchestrator) fundBot(ctx context.Context, s *session, spec BotSpec) (Status, error) {
	treasurySigner, err := o.wallets.SignerFor(o.cfg.TreasuryAddress)
	if err != nil {
		return Status{}, err
	}

	perWallet := chain.SolToLamports(spec.SolPerWallet)
	available, err := o.chain.Balance(ctx, o.cfg.TreasuryAddress)
	if err != nil {
		return Status{}, err
	}
	if needed := treasury.FundingCost(spec.WalletCount, perWallet); available < needed {
		return Status{}, &treasury.InsufficientFundsError{
			NeededLamports:    needed,
			AvailableLamports: available,
		}
	}

	generated, err := o.wallets.GenerateBatch(spec.WalletCount, spec.Name, vault.Burner, "")
	if err != nil {
		return Status{}, err
	}
	targets := make([]solana.PublicKey, len(generated))
	for i, w := range generated {
		targets[i] = w.Address
	}

	// Partial funding failures shrink the group rather than abort it.
	funded, err := o.treasury.Fund(ctx, treasurySigner, targets, perWallet)
	if err != nil {
		return Status{}, err
	}
	if len(funded) == 0 {
		return Status{}, errNoFundedWallets
	}
	o.metrics.fundedLamports.Add(float64(perWallet) * float64(len(funded)))

	s.lock.Lock()
	s.wallets = funded
	s.lock.Unlock()

	o.spawnLoops(s)
	return s.snapshot(), nil
}

// ActivitySpec runs organic-looking trades and transfers across existing
// wallets for a bounded window.
type ActivitySpec struct {
	Duration  time.Duration
	Wallets   []solana.PublicKey
	Intensity policy.Intensity
}

func (o *Orchestrator) StartActivity(spec ActivitySpec) (Status, error) {
	if spec.Duration <= 0 || spec.Duration > maxActivityDuration {
		return Status{}, fmt.Errorf("%w: duration must be in (0, %s]", ErrInvalidSpec, maxActivityDuration)
	}
	preset, ok := o.cfg.Presets.Activity[spec.Intensity]
	if !ok {
		return Status{}, fmt.Errorf("%w: unknown intensity", ErrInvalidSpec)
	}

	candidates := spec.Wallets
	if len(candidates) == 0 {
		candidates = o.wallets.Addresses()
	}
	// Deduplicate the caller's list: one loop per wallet, and transfer
	// sibling picks rely on distinct addresses.
	wallets := make([]solana.PublicKey, 0, len(candidates))
	seen := make(map[solana.PublicKey]struct{}, len(candidates))
	for _, addr := range candidates {
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		wallets = append(wallets, addr)
	}
	if len(wallets) == 0 {
		return Status{}, errNoWallets
	}
	for _, addr := range wallets {
		if !o.wallets.Contains(addr) {
			return Status{}, fmt.Errorf("%w: %s", vault.ErrUnknownWallet, addr)
		}
	}

	o.lock.Lock()
	defer o.lock.Unlock()

	if o.runningOfKindLocked(Activity) > 0 {
		return Status{}, ErrAlreadyRunning
	}

	s := o.registerLocked(&session{
		kind:    Activity,
		wallets: wallets,
		preset:  preset,
		endAt:   o.clock.Time().Add(spec.Duration),
	})
	o.spawnLoops(s)
	return s.snapshot(), nil
}

// StopSession cancels a session's loops, waits for them to return, runs
// the optional cleanup sell and removes the session. Stopping an unknown
// id returns ErrNotFound with zero stats. Removal from the registry is
// the gate: concurrent stops of the same id race for it, and exactly one
// runs the cleanup and metrics path.
func (o *Orchestrator) StopSession(id string, sellHeld bool) (Stats, error) {
	o.lock.Lock()
	s, ok := o.sessions[id]
	delete(o.sessions, id)
	o.lock.Unlock()
	if !ok {
		return Stats{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	s.halt()
	s.wg.Wait()

	if sellHeld || s.kind == Activity {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		sold := o.cleanupSell(ctx, s)
		cancel()
		o.log.Info("session cleanup sold holdings",
			zap.String("session", s.id),
			zap.Int("sold", sold),
		)
	}

	o.metrics.runningSessions.WithLabelValues(s.kind.String()).Dec()

	final := s.snapshot().Stats
	o.log.Info("stopped session",
		zap.String("session", s.id),
		zap.Stringer("kind", s.kind),
		zap.Uint64("executed", final.Executed),
		zap.Uint64("successful", final.Successful),
		zap.Uint64("failed", final.Failed),
		zap.Float64("volumeSol", final.VolumeSol),
	)
	return final, nil
}

// StopAll stops every registered session; used on shutdown.
func (o *Orchestrator) StopAll() {
	o.lock.Lock()
	ids := make([]string, 0, len(o.sessions))
	for id := range o.sessions {
		ids = append(ids, id)
	}
	o.lock.Unlock()

	for _, id := range ids {
		if _, err := o.StopSession(id, false); err != nil && !errors.Is(err, ErrNotFound) {
			o.log.Warn("failed to stop session", zap.String("session", id), zap.Error(err))
		}
	}
}

func (o *Orchestrator) GetStatus(id string) (Status, error) {
	o.lock.Lock()
	s, ok := o.sessions[id]
	o.lock.Unlock()
	if !ok {
		return Status{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.snapshot(), nil
}

func (o *Orchestrator) ListByKind(kind Kind) []Status {
	o.lock.Lock()
	sessions := make([]*session, 0, len(o.sessions))
	for _, s := range o.sessions {
		if s.kind == kind {
			sessions = append(sessions, s)
		}
	}
	o.lock.Unlock()

	statuses := make([]Status, len(sessions))
	for i, s := range sessions {
		statuses[i] = s.snapshot()
	}
	return statuses
}

// ManualBuy spends [amountSol] native from [wallet] on [mint] as a
// one-shot trade. Router validation errors propagate to the caller.
func (o *Orchestrator) ManualBuy(ctx context.Context, wallet, mint solana.PublicKey, amountSol float64) (*dex.SwapOutcome, error) {
	signer, err := o.wallets.SignerFor(wallet)
	if err != nil {
		return nil, err
	}

	lamports := chain.SolToLamports(amountSol)
	out, err := o.router.Execute(ctx, signer, dex.QuoteParams{
		InputMint:                solana.SolMint,
		OutputMint:               mint,
		InAmount:                 lamports,
		SlippageBps:              o.cfg.SlippageBps,
		PriorityFeeMicroLamports: o.cfg.PriorityFeeMicroLamports,
	})
	if err != nil {
		return nil, err
	}
	if o.fees != nil {
		o.fees.Collect(ctx, signer, lamports)
	}
	return out, nil
}

// ManualSell sells [wallet]'s entire [mint] balance back to native.
func (o *Orchestrator) ManualSell(ctx context.Context, wallet, mint solana.PublicKey) (*dex.SwapOutcome, error) {
	signer, err := o.wallets.SignerFor(wallet)
	if err != nil {
		return nil, err
	}
	balance, err := o.chain.TokenBalance(ctx, wallet, mint)
	if err != nil {
		return nil, err
	}
	if balance == 0 {
		return nil, fmt.Errorf("%w: %s", errNothingToSell, mint)
	}

	out, err := o.router.Execute(ctx, signer, dex.QuoteParams{
		InputMint:                mint,
		OutputMint:               solana.SolMint,
		InAmount:                 balance,
		SlippageBps:              o.cfg.SlippageBps,
		PriorityFeeMicroLamports: o.cfg.PriorityFeeMicroLamports,
	})
	if err != nil {
		return nil, err
	}
	if o.fees != nil {
		o.fees.Collect(ctx, signer, out.OutAmount)
	}
	return out, nil
}

// SweepWallets drains the given wallets back to the treasury wallet,
// leaving [keepSol] native behind in each (the mover floors it at the
// rent reserve). Protected wallets are skipped by the mover.
func (o *Orchestrator) SweepWallets(ctx context.Context, wallets []solana.PublicKey, keepSol float64) (uint64, error) {
	if o.cfg.TreasuryAddress.IsZero() {
		return 0, errNoTreasuryWallet
	}

	signers := make([]chain.Signer, 0, len(wallets))
	for _, addr := range wallets {
		signer, err := o.wallets.SignerFor(addr)
		if err != nil {
			return 0, err
		}
		signers = append(signers, signer)
	}

	total, err := o.treasury.Sweep(ctx, signers, o.cfg.TreasuryAddress, chain.SolToLamports(keepSol))
	if err != nil {
		return 0, err
	}
	o.metrics.sweptLamports.Add(float64(total))
	return total, nil
}

// LaunchToken creates a token through the bonding curve and records the
// launch so the creator wallet becomes protected from cleanup.
func (o *Orchestrator) LaunchToken(ctx context.Context, wallet solana.PublicKey, name, symbol, uri string) (solana.PublicKey, solana.Signature, error) {
	if o.launcher == nil || o.launches == nil {
		return solana.PublicKey{}, solana.Signature{}, errLaunchNotWired
	}
	signer, err := o.wallets.SignerFor(wallet)
	if err != nil {
		return solana.PublicKey{}, solana.Signature{}, err
	}

	mint, sig, err := o.launcher.CreateToken(ctx, signer, name, symbol, uri)
	if err != nil {
		return solana.PublicKey{}, solana.Signature{}, err
	}
	if err := o.launches.Append(launchpad.Record{
		WalletAddress: wallet.String(),
		MintAddress:   mint.String(),
		Name:          name,
		Symbol:        symbol,
		Timestamp:     o.clock.Time(),
	}); err != nil {
		// The token exists on chain either way; surface the failure so
		// the operator knows the wallet is not yet protected.
		return mint, sig, fmt.Errorf("token created but launch record not persisted: %w", err)
	}
	return mint, sig, nil
}

func (o *Orchestrator) runningOfKindLocked(kind Kind) int {
	count := 0
	for _, s := range o.sessions {
		if s.kind == kind && s.isRunning() {
			count++
		}
	}
	return count
}

// registerLocked completes the session's bookkeeping fields and adds it to
// the registry. The registry lock must be held.
func (o *Orchestrator) registerLocked(s *session) *session {
	ctx, cancel := context.WithCancel(context.Background())
	s.id = newSessionID()
	s.startedAt = o.clock.Time()
	s.cancel = cancel
	s.loopCtx = ctx
	s.running = true
	s.held = make(map[solana.PublicKey]struct{})

	o.sessions[s.id] = s
	o.metrics.runningSessions.WithLabelValues(s.kind.String()).Inc()
	return s
}

func (o *Orchestrator) unregister(s *session) {
	s.halt()
	s.wg.Wait()

	o.lock.Lock()
	_, ok := o.sessions[s.id]
	delete(o.sessions, s.id)
	o.lock.Unlock()
	if ok {
		o.metrics.runningSessions.WithLabelValues(s.kind.String()).Dec()
	}
}

func (o *Orchestrator) spawnLoops(s *session) {
	o.log.Info("starting session",
		zap.String("session", s.id),
		zap.Stringer("kind", s.kind),
		zap.Int("wallets", len(s.wallets)),
	)
	for _, wallet := range s.wallets {
		s.wg.Add(1)
		go o.runLoop(s.loopCtx, s, wallet)
	}
}
