package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	clierr "github.com/ggonzalez94/goldilocks-keeper/internal/errors"
	"github.com/ggonzalez94/goldilocks-keeper/internal/units"
	"gopkg.in/yaml.v3"
)

type GlobalFlags struct {
	ConfigPath string
	JSON       bool
	Plain      bool
	LogLevel   string
	LogFormat  string
	PrivateKey string
	KeySource  string
}

type Contracts struct {
	Honey    string
	Locks    string
	Porridge string
}

type Settings struct {
	OutputMode string
	LogLevel   string
	LogFormat  string

	RPCURL     string
	WebhookURL string
	Contracts  Contracts
	ABIDir     string

	// PrivateKey and KeySource come from flags only; the signer package
	// resolves env vars, key files and keystores itself.
	PrivateKey string
	KeySource  string

	BorrowThreshold    *big.Int
	AllowWalletHoney   bool
	SwapLeftoverHoney  bool
	SwapAllWalletHoney bool
	NotifySkipped      bool

	CycleInterval time.Duration
	CycleSchedule string

	ReceiptTimeout      time.Duration
	ReceiptPollInterval time.Duration
	FallbackGasLimit    uint64

	WebhookTimeout time.Duration
	WebhookRetries int

	MetricsAddr string
	LockPath    string
}

type fileConfig struct {
	Output             string  `yaml:"output"`
	RPCURL             string  `yaml:"rpc_url"`
	WebhookURL         string  `yaml:"webhook_url"`
	ABIDir             string  `yaml:"abi_dir"`
	BorrowThreshold    string  `yaml:"borrow_threshold"`
	AllowWalletHoney   *bool   `yaml:"allow_wallet_honey"`
	SwapLeftoverHoney  *bool   `yaml:"swap_leftover_honey"`
	SwapAllWalletHoney *bool   `yaml:"swap_all_wallet_honey"`
	NotifySkipped      *bool   `yaml:"notify_skipped"`
	CycleInterval      *int    `yaml:"cycle_interval"`
	CycleSchedule      string  `yaml:"cycle_schedule"`
	ReceiptTimeout     string  `yaml:"receipt_timeout"`
	ReceiptPoll        string  `yaml:"receipt_poll_interval"`
	FallbackGasLimit   *uint64 `yaml:"fallback_gas_limit"`
	MetricsAddr        string  `yaml:"metrics_addr"`
	LockPath           string  `yaml:"lock_path"`
	Contracts          struct {
		Honey    string `yaml:"honey"`
		Locks    string `yaml:"locks"`
		Porridge string `yaml:"porridge"`
	} `yaml:"contracts"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Webhook struct {
		Timeout string `yaml:"timeout"`
		Retries *int   `yaml:"retries"`
	} `yaml:"webhook"`
}

// Load resolves settings with precedence flags > env > file > defaults.
// It does not validate; commands call Validate or ValidateReadOnly.
func Load(flags GlobalFlags) (Settings, error) {
	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}

	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	if err := applyEnv(&settings); err != nil {
		return Settings{}, err
	}

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	return settings, nil
}

func defaultSettings() (Settings, error) {
	lockPath, err := defaultLockPath()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		OutputMode:          "plain",
		LogLevel:            "info",
		LogFormat:           "console",
		BorrowThreshold:     units.Wad(),
		CycleInterval:       120 * time.Second,
		ReceiptTimeout:      120 * time.Second,
		ReceiptPollInterval: time.Second,
		FallbackGasLimit:    500_000,
		WebhookTimeout:      10 * time.Second,
		WebhookRetries:      2,
		LockPath:            lockPath,
	}, nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "goldilocks", "config.yaml"), nil
}

func defaultLockPath() (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "goldilocks", "bot.lock"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return clierr.Wrap(clierr.CodeConfig, "read config", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return clierr.Wrap(clierr.CodeConfig, "parse config yaml", err)
	}

	setString(&settings.OutputMode, strings.ToLower(cfg.Output))
	setString(&settings.RPCURL, cfg.RPCURL)
	setString(&settings.WebhookURL, cfg.WebhookURL)
	setString(&settings.ABIDir, cfg.ABIDir)
	setString(&settings.Contracts.Honey, cfg.Contracts.Honey)
	setString(&settings.Contracts.Locks, cfg.Contracts.Locks)
	setString(&settings.Contracts.Porridge, cfg.Contracts.Porridge)
	setString(&settings.CycleSchedule, cfg.CycleSchedule)
	setString(&settings.MetricsAddr, cfg.MetricsAddr)
	setString(&settings.LockPath, cfg.LockPath)
	setString(&settings.LogLevel, cfg.Log.Level)
	setString(&settings.LogFormat, cfg.Log.Format)

	if cfg.BorrowThreshold != "" {
		v, err := ParseThreshold("borrow_threshold", cfg.BorrowThreshold)
		if err != nil {
			return err
		}
		settings.BorrowThreshold = v
	}
	setBool(&settings.AllowWalletHoney, cfg.AllowWalletHoney)
	setBool(&settings.SwapLeftoverHoney, cfg.SwapLeftoverHoney)
	setBool(&settings.SwapAllWalletHoney, cfg.SwapAllWalletHoney)
	setBool(&settings.NotifySkipped, cfg.NotifySkipped)
	if cfg.CycleInterval != nil {
		settings.CycleInterval = time.Duration(*cfg.CycleInterval) * time.Second
	}
	if cfg.FallbackGasLimit != nil {
		settings.FallbackGasLimit = *cfg.FallbackGasLimit
	}
	if cfg.Webhook.Retries != nil {
		settings.WebhookRetries = *cfg.Webhook.Retries
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"receipt_timeout", cfg.ReceiptTimeout, &settings.ReceiptTimeout},
		{"receipt_poll_interval", cfg.ReceiptPoll, &settings.ReceiptPollInterval},
		{"webhook.timeout", cfg.Webhook.Timeout, &settings.WebhookTimeout},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return clierr.Wrap(clierr.CodeConfig, "config "+d.key, err)
		}
		*d.dst = v
	}
	return nil
}

func applyEnv(settings *Settings) error {
	for name, dst := range map[string]*string{
		"RPC_URL":          &settings.RPCURL,
		"WEBHOOK_URL":      &settings.WebhookURL,
		"HONEY_ADDRESS":    &settings.Contracts.Honey,
		"LOCKS_ADDRESS":    &settings.Contracts.Locks,
		"PORRIDGE_ADDRESS": &settings.Contracts.Porridge,
		"ABI_DIR":          &settings.ABIDir,
		"CYCLE_SCHEDULE":   &settings.CycleSchedule,
		"METRICS_ADDR":     &settings.MetricsAddr,
		"LOCK_PATH":        &settings.LockPath,
		"LOG_LEVEL":        &settings.LogLevel,
		"LOG_FORMAT":       &settings.LogFormat,
	} {
		setString(dst, os.Getenv(name))
	}
	if v := os.Getenv("GOLDILOCKS_OUTPUT"); v != "" {
		settings.OutputMode = strings.ToLower(v)
	}

	for name, dst := range map[string]*bool{
		"ALLOW_WALLET_HONEY":    &settings.AllowWalletHoney,
		"SWAP_LEFTOVER_HONEY":   &settings.SwapLeftoverHoney,
		"SWAP_ALL_WALLET_HONEY": &settings.SwapAllWalletHoney,
		"NOTIFY_SKIPPED":        &settings.NotifySkipped,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return clierr.Wrap(clierr.CodeConfig, "parse "+name, err)
		}
		*dst = b
	}

	if v := os.Getenv("BORROW_THRESHOLD"); v != "" {
		threshold, err := ParseThreshold("BORROW_THRESHOLD", v)
		if err != nil {
			return err
		}
		settings.BorrowThreshold = threshold
	}
	if v := os.Getenv("CYCLE_INTERVAL"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return clierr.Wrap(clierr.CodeConfig, "parse CYCLE_INTERVAL", err)
		}
		settings.CycleInterval = time.Duration(n) * time.Second
	}
	if v := os.Getenv("FALLBACK_GAS_LIMIT"); v != "" {
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return clierr.Wrap(clierr.CodeConfig, "parse FALLBACK_GAS_LIMIT", err)
		}
		settings.FallbackGasLimit = n
	}
	for name, dst := range map[string]*time.Duration{
		"RECEIPT_TIMEOUT":       &settings.ReceiptTimeout,
		"RECEIPT_POLL_INTERVAL": &settings.ReceiptPollInterval,
	} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		d, err := parseSeconds(v)
		if err != nil {
			return clierr.Wrap(clierr.CodeConfig, "parse "+name, err)
		}
		*dst = d
	}
	return nil
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.JSON && flags.Plain {
		return clierr.New(clierr.CodeConfig, "cannot use --json and --plain together")
	}
	if flags.JSON {
		settings.OutputMode = "json"
	}
	if flags.Plain {
		settings.OutputMode = "plain"
	}
	setString(&settings.LogLevel, strings.TrimSpace(flags.LogLevel))
	setString(&settings.LogFormat, strings.TrimSpace(flags.LogFormat))
	settings.PrivateKey = strings.TrimSpace(flags.PrivateKey)
	settings.KeySource = strings.TrimSpace(flags.KeySource)

	if settings.OutputMode != "json" && settings.OutputMode != "plain" {
		return clierr.New(clierr.CodeConfig, "output must be json or plain")
	}
	return nil
}

// ValidateReadOnly checks what commands that only read chain state need.
func (s Settings) ValidateReadOnly() error {
	var problems []string
	if strings.TrimSpace(s.RPCURL) == "" {
		problems = append(problems, "RPC_URL is required")
	}
	for _, c := range []struct{ name, addr string }{
		{"HONEY_ADDRESS", s.Contracts.Honey},
		{"LOCKS_ADDRESS", s.Contracts.Locks},
		{"PORRIDGE_ADDRESS", s.Contracts.Porridge},
	} {
		switch {
		case strings.TrimSpace(c.addr) == "":
			problems = append(problems, c.name+" is required")
		case !common.IsHexAddress(c.addr):
			problems = append(problems, fmt.Sprintf("%s %q is not a valid address", c.name, c.addr))
		}
	}
	if s.ReceiptTimeout <= 0 {
		problems = append(problems, "receipt timeout must be positive")
	}
	if s.ReceiptPollInterval <= 0 {
		problems = append(problems, "receipt poll interval must be positive")
	}
	if s.FallbackGasLimit == 0 {
		problems = append(problems, "fallback gas limit must be positive")
	}
	if len(problems) > 0 {
		return clierr.New(clierr.CodeConfig, "invalid configuration: "+strings.Join(problems, "; "))
	}
	return nil
}

// Validate checks everything the bot loop needs.
func (s Settings) Validate() error {
	if err := s.ValidateReadOnly(); err != nil {
		return err
	}
	var problems []string
	if strings.TrimSpace(s.WebhookURL) == "" {
		problems = append(problems, "WEBHOOK_URL is required")
	}
	if s.CycleSchedule == "" && s.CycleInterval < time.Second {
		problems = append(problems, "cycle interval must be at least one second")
	}
	if s.BorrowThreshold == nil || s.BorrowThreshold.Sign() < 0 {
		problems = append(problems, "borrow threshold must not be negative")
	}
	if len(problems) > 0 {
		return clierr.New(clierr.CodeConfig, "invalid configuration: "+strings.Join(problems, "; "))
	}
	return nil
}

// ParseThreshold accepts base units ("1000000000000000000") or a decimal
// HONEY amount ("1.5").
func ParseThreshold(key, raw string) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, ".") {
		v, err := units.ParseDecimal(raw, units.Decimals)
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeConfig, "parse "+key, err)
		}
		return v, nil
	}
	v, err := units.ParseBaseUnits(raw)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeConfig, "parse "+key, err)
	}
	return v, nil
}

// parseSeconds accepts a Go duration or a bare number of seconds.
func parseSeconds(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(n * float64(time.Second)), nil
	}
	return time.ParseDuration(raw)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
