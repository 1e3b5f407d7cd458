package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRPCURL          = rpc.DevNet_RPC
	DefaultProgramID       = "qbuMdeYxYJXBjU6C6qFKjAKjiRA9PZ4gSbWTubcTS4R"
	DefaultKeypair         = "~/.config/solana/id.json"
	DefaultJournalDir      = "./wal/journal"
	DefaultHTTPAddr        = ":8080"
	DefaultCacheSize       = 256
	DefaultConfirmWait     = 60 * time.Second
	DefaultConfirmPoll     = 500 * time.Millisecond
	DefaultTLSCacheDir     = "./certs"
	DetectionMintAuthority = "mint_authority"
	DetectionOwner         = "owner"
	envPrefix              = "SOLESCROW_"
	DefaultLogLevel        = "info"
)

// Config runtime settings of the escrow client.
type Config struct {
	RPCURL     string
	ProgramID  solana.PublicKey
	Commitment rpc.CommitmentType
	Keypair    string
	// Owner watch-only address, used when no keypair is configured.
	Owner               *solana.PublicKey
	Detection           string
	StrictDetection     bool
	ConfirmTimeout      time.Duration
	ConfirmPollInterval time.Duration
	JournalDir          string
	MetadataCacheSize   int
	HTTPAddr            string
	TLSDomains          []string
	TLSCacheDir         string
	LogLevel            string
}

// ConfigTmp raw yaml layout, parsed into Config.
type ConfigTmp struct {
	RPCURL              string        `yaml:"rpc_url"`
	ProgramID           string        `yaml:"program_id"`
	Commitment          string        `yaml:"commitment,omitempty"`
	Keypair             string        `yaml:"keypair,omitempty"`
	Owner               string        `yaml:"owner,omitempty"`
	Detection           string        `yaml:"detection,omitempty"`
	StrictDetection     bool          `yaml:"strict_detection,omitempty"`
	ConfirmTimeout      time.Duration `yaml:"confirm_timeout,omitempty"`
	ConfirmPollInterval time.Duration `yaml:"confirm_poll_interval,omitempty"`
	JournalDir          string        `yaml:"journal_dir,omitempty"`
	MetadataCacheSize   int           `yaml:"metadata_cache_size,omitempty"`
	HTTPAddr            string        `yaml:"http_addr,omitempty"`
	TLSDomains          []string      `yaml:"tls_domains,omitempty"`
	TLSCacheDir         string        `yaml:"tls_cache_dir,omitempty"`
	LogLevel            string        `yaml:"log_level,omitempty"`
}

// Default returns the raw defaults, as written by the setup wizard.
func Default() ConfigTmp {
	return ConfigTmp{
		RPCURL:              DefaultRPCURL,
		ProgramID:           DefaultProgramID,
		Commitment:          string(rpc.CommitmentConfirmed),
		Keypair:             DefaultKeypair,
		Detection:           DetectionMintAuthority,
		ConfirmTimeout:      DefaultConfirmWait,
		ConfirmPollInterval: DefaultConfirmPoll,
		JournalDir:          DefaultJournalDir,
		MetadataCacheSize:   DefaultCacheSize,
		HTTPAddr:            DefaultHTTPAddr,
		TLSCacheDir:         DefaultTLSCacheDir,
		LogLevel:            DefaultLogLevel,
	}
}

// Load reads .env (if present), the yaml file at path (optional) and
// SOLESCROW_* environment overrides, in that order.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env")
	}

	raw := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}

	if err := applyEnv(&raw); err != nil {
		return nil, err
	}

	return raw.Parse()
}

// Parse validates raw values and converts them into a Config.
func (c ConfigTmp) Parse() (*Config, error) {
	d := Default()
	if c.RPCURL == "" {
		c.RPCURL = d.RPCURL
	}
	if c.ProgramID == "" {
		c.ProgramID = d.ProgramID
	}
	if c.Commitment == "" {
		c.Commitment = d.Commitment
	}
	if c.Detection == "" {
		c.Detection = d.Detection
	}
	if c.ConfirmTimeout == 0 {
		c.ConfirmTimeout = d.ConfirmTimeout
	}
	if c.ConfirmPollInterval == 0 {
		c.ConfirmPollInterval = d.ConfirmPollInterval
	}
	if c.JournalDir == "" {
		c.JournalDir = d.JournalDir
	}
	if c.MetadataCacheSize == 0 {
		c.MetadataCacheSize = d.MetadataCacheSize
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = d.HTTPAddr
	}
	if c.TLSCacheDir == "" {
		c.TLSCacheDir = d.TLSCacheDir
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}

	programID, err := solana.PublicKeyFromBase58(c.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("incorrect 'program_id' param in yaml config: %s, error: %w", c.ProgramID, err)
	}

	cfg := &Config{
		RPCURL:              c.RPCURL,
		ProgramID:           programID,
		Commitment:          rpc.CommitmentType(c.Commitment),
		Keypair:             c.Keypair,
		Detection:           c.Detection,
		StrictDetection:     c.StrictDetection,
		ConfirmTimeout:      c.ConfirmTimeout,
		ConfirmPollInterval: c.ConfirmPollInterval,
		JournalDir:          c.JournalDir,
		MetadataCacheSize:   c.MetadataCacheSize,
		HTTPAddr:            c.HTTPAddr,
		TLSDomains:          c.TLSDomains,
		TLSCacheDir:         c.TLSCacheDir,
		LogLevel:            c.LogLevel,
	}

	if c.Owner != "" {
		owner, err := solana.PublicKeyFromBase58(c.Owner)
		if err != nil {
			return nil, fmt.Errorf("incorrect 'owner' param in yaml config: %s, error: %w", c.Owner, err)
		}
		cfg.Owner = &owner
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enums.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc_url is required")
	}
	if c.ProgramID.IsZero() {
		return fmt.Errorf("program_id is required")
	}
	switch c.Commitment {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
	default:
		return fmt.Errorf("incorrect 'commitment' param: %s (processed, confirmed or finalized)", c.Commitment)
	}
	switch c.Detection {
	case DetectionMintAuthority, DetectionOwner:
	default:
		return fmt.Errorf("incorrect 'detection' param: %s (%s or %s)", c.Detection, DetectionMintAuthority, DetectionOwner)
	}
	if c.Keypair == "" && c.Owner == nil {
		return fmt.Errorf("either 'keypair' or 'owner' must be set")
	}
	if c.ConfirmTimeout < 0 || c.ConfirmPollInterval < 0 {
		return fmt.Errorf("confirmation durations must not be negative")
	}
	if c.ConfirmPollInterval > c.ConfirmTimeout {
		return fmt.Errorf("confirm_poll_interval %s exceeds confirm_timeout %s", c.ConfirmPollInterval, c.ConfirmTimeout)
	}
	if c.MetadataCacheSize < 0 {
		return fmt.Errorf("metadata_cache_size must not be negative")
	}
	return nil
}

// TLSEnabled reports whether the API should serve HTTPS via autocert.
func (c *Config) TLSEnabled() bool {
	return len(c.TLSDomains) > 0
}

func applyEnv(c *ConfigTmp) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = v
		}
	}
	str("RPC_URL", &c.RPCURL)
	str("PROGRAM_ID", &c.ProgramID)
	str("COMMITMENT", &c.Commitment)
	str("KEYPAIR", &c.Keypair)
	str("OWNER", &c.Owner)
	str("DETECTION", &c.Detection)
	str("JOURNAL_DIR", &c.JournalDir)
	str("HTTP_ADDR", &c.HTTPAddr)
	str("TLS_CACHE_DIR", &c.TLSCacheDir)
	str("LOG_LEVEL", &c.LogLevel)

	if v, ok := os.LookupEnv(envPrefix + "TLS_DOMAINS"); ok {
		c.TLSDomains = splitList(v)
	}
	if v, ok := os.LookupEnv(envPrefix + "STRICT_DETECTION"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("incorrect %sSTRICT_DETECTION: %w", envPrefix, err)
		}
		c.StrictDetection = b
	}
	if v, ok := os.LookupEnv(envPrefix + "CONFIRM_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("incorrect %sCONFIRM_TIMEOUT: %w", envPrefix, err)
		}
		c.ConfirmTimeout = d
	}
	if v, ok := os.LookupEnv(envPrefix + "CONFIRM_POLL_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("incorrect %sCONFIRM_POLL_INTERVAL: %w", envPrefix, err)
		}
		c.ConfirmPollInterval = d
	}
	if v, ok := os.LookupEnv(envPrefix + "METADATA_CACHE_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("incorrect %sMETADATA_CACHE_SIZE: %w", envPrefix, err)
		}
		c.MetadataCacheSize = n
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
