package app

import (
	"context"
	"time"

	"github.com/ggonzalez94/goldilocks-keeper/internal/config"
	clierr "github.com/ggonzalez94/goldilocks-keeper/internal/errors"
	"github.com/ggonzalez94/goldilocks-keeper/internal/execution"
	"github.com/ggonzalez94/goldilocks-keeper/internal/execution/signer"
	"github.com/ggonzalez94/goldilocks-keeper/internal/logx"
	"github.com/ggonzalez94/goldilocks-keeper/internal/metrics"
	"github.com/ggonzalez94/goldilocks-keeper/internal/protocol"
	"github.com/ggonzalez94/goldilocks-keeper/internal/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
)

const connectTimeout = 30 * time.Second

// session is a connected, verified view of the protocol for one account.
type session struct {
	client   *execution.Client
	proto    *protocol.Protocol
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	close    func()
}

func (s *runtimeState) openSession(ctx context.Context) (*session, error) {
	settings := s.settings
	txSigner, err := signer.NewLocalSignerFromInputs(settings.KeySource, settings.PrivateKey)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeSigner, "load signer", err)
	}
	contracts, err := registry.Bind(registry.Addresses{
		Honey:    settings.Contracts.Honey,
		Locks:    settings.Contracts.Locks,
		Porridge: settings.Contracts.Porridge,
	}, settings.ABIDir)
	if err != nil {
		return nil, err
	}
	if settings.ABIDir == "" {
		s.logger.Warn().
			Str("event_shape", registry.AssumedEventSignature).
			Msg("ABI_DIR not set, using built-in ABIs; amounts fall back to requested values if deployed events differ")
	}

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	backend, closeBackend, err := s.runner.dial(dialCtx, settings.RPCURL)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeConnection, "connect to rpc", err)
	}
	if closeBackend == nil {
		closeBackend = func() {}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	client, err := execution.NewClient(dialCtx, backend, txSigner, execution.Options{
		PollInterval: settings.ReceiptPollInterval,
		Timeout:      settings.ReceiptTimeout,
		FallbackGas:  settings.FallbackGasLimit,
	}, execution.WithLogger(logx.ForComponent(s.logger, "execution")), execution.WithMetrics(m))
	if err != nil {
		closeBackend()
		return nil, err
	}
	proto, err := protocol.New(client, contracts, logx.ForComponent(s.logger, "protocol"))
	if err != nil {
		closeBackend()
		return nil, clierr.Wrap(clierr.CodeConfig, "bind protocol", err)
	}
	if err := proto.Verify(dialCtx); err != nil {
		closeBackend()
		return nil, clierr.Wrap(clierr.CodeConnection, "verify contracts", err)
	}

	s.account = client.Address().Hex()
	s.chainID = client.ChainID().Int64()
	s.logger = s.logger.With().Str("account", s.account).Int64("chain_id", s.chainID).Logger()
	s.logger.Info().Msg("connected")
	return &session{client: client, proto: proto, metrics: m, registry: reg, close: closeBackend}, nil
}

// addCycleFlags registers per-command overrides of the cycle settings.
func addCycleFlags(fs *pflag.FlagSet) {
	fs.String("borrow-threshold", "", "Minimum borrow limit to run a cycle (base units or decimal HONEY)")
	fs.Bool("allow-wallet-honey", false, "Let partial stirs spend HONEY already in the wallet")
	fs.Bool("swap-leftover-honey", false, "Swap HONEY left after stirring into LOCKS")
	fs.Bool("swap-all-wallet-honey", false, "Swap 95% of the wallet HONEY instead of only the leftover")
}

// applyCycleFlags copies explicitly set cycle flags over settings.
func applyCycleFlags(fs *pflag.FlagSet, settings *config.Settings) error {
	if f := fs.Lookup("borrow-threshold"); f != nil && f.Changed {
		v, err := config.ParseThreshold("--borrow-threshold", f.Value.String())
		if err != nil {
			return err
		}
		settings.BorrowThreshold = v
	}
	bools := map[string]*bool{
		"allow-wallet-honey":    &settings.AllowWalletHoney,
		"swap-leftover-honey":   &settings.SwapLeftoverHoney,
		"swap-all-wallet-honey": &settings.SwapAllWalletHoney,
	}
	for name, dst := range bools {
		if fs.Lookup(name) == nil || !fs.Changed(name) {
			continue
		}
		v, err := fs.GetBool(name)
		if err != nil {
			return clierr.Wrap(clierr.CodeConfig, "parse --"+name, err)
		}
		*dst = v
	}
	return nil
}
