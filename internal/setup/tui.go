package setup

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/solescrow/config"
)

// DefaultConfigFile is where the wizard writes unless told otherwise.
const DefaultConfigFile = "solescrow.yaml"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// Answers raw wizard input.
type Answers struct {
	Network         string
	CustomRPCURL    string
	ProgramID       string
	WalletKind      string
	Keypair         string
	Owner           string
	Commitment      string
	Detection       string
	StrictDetection bool
	ConfirmTimeout  string
	HTTPAddr        string
	TLSDomains      string
}

var networks = map[string]string{
	"devnet":   rpc.DevNet_RPC,
	"mainnet":  rpc.MainNetBeta_RPC,
	"testnet":  rpc.TestNet_RPC,
	"localnet": rpc.LocalNet_RPC,
}

func defaultAnswers() Answers {
	d := config.Default()
	return Answers{
		Network:        "devnet",
		ProgramID:      d.ProgramID,
		WalletKind:     "keypair",
		Keypair:        d.Keypair,
		Commitment:     d.Commitment,
		Detection:      d.Detection,
		ConfirmTimeout: d.ConfirmTimeout.String(),
		HTTPAddr:       d.HTTPAddr,
	}
}

// BuildConfig turns answers into a validated raw config.
func BuildConfig(a Answers) (config.ConfigTmp, error) {
	cfg := config.Default()

	switch {
	case a.Network == "custom":
		if a.CustomRPCURL == "" {
			return cfg, fmt.Errorf("custom network needs an RPC URL")
		}
		cfg.RPCURL = a.CustomRPCURL
	case networks[a.Network] != "":
		cfg.RPCURL = networks[a.Network]
	default:
		return cfg, fmt.Errorf("unknown network %q", a.Network)
	}

	if a.ProgramID != "" {
		cfg.ProgramID = a.ProgramID
	}
	if a.WalletKind == "watch" {
		cfg.Keypair = ""
		cfg.Owner = a.Owner
	} else {
		cfg.Keypair = a.Keypair
	}
	if a.Commitment != "" {
		cfg.Commitment = a.Commitment
	}
	if a.Detection != "" {
		cfg.Detection = a.Detection
	}
	cfg.StrictDetection = a.StrictDetection

	if a.ConfirmTimeout != "" {
		d, err := time.ParseDuration(a.ConfirmTimeout)
		if err != nil {
			return cfg, fmt.Errorf("incorrect confirmation timeout: %w", err)
		}
		cfg.ConfirmTimeout = d
	}
	if a.HTTPAddr != "" {
		cfg.HTTPAddr = a.HTTPAddr
	}
	for _, d := range strings.Split(a.TLSDomains, ",") {
		if d = strings.TrimSpace(d); d != "" {
			cfg.TLSDomains = append(cfg.TLSDomains, d)
		}
	}

	if _, err := cfg.Parse(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// WriteConfig stores cfg as yaml at path.
func WriteConfig(path string, cfg config.ConfigTmp) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

func clearScreen(step string) {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("SOLESCROW CONFIG WIZARD"))
	fmt.Println(stepStyle.Render(step))
}

// RunTUI launches the terminal configuration wizard and writes the result to path.
func RunTUI(path string) error {
	if path == "" {
		path = DefaultConfigFile
	}
	a := defaultAnswers()
	var confirm bool

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("SOLESCROW CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Point the escrow client at a cluster and a wallet.\n"))

	fmt.Println(stepStyle.Render("STEP 1: NETWORK"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Solana cluster").
				Options(
					huh.NewOption("Devnet", "devnet"),
					huh.NewOption("Mainnet beta", "mainnet"),
					huh.NewOption("Testnet", "testnet"),
					huh.NewOption("Local validator", "localnet"),
					huh.NewOption("Custom RPC URL", "custom"),
				).
				Value(&a.Network),
		),
	).Run()
	if err != nil {
		return err
	}

	if a.Network == "custom" {
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("RPC URL").
					Value(&a.CustomRPCURL).
					Validate(func(s string) error {
						if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
							return fmt.Errorf("must be an http(s) URL")
						}
						return nil
					}),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	clearScreen("STEP 2: ESCROW PROGRAM")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Escrow program id").
				Value(&a.ProgramID).
				Validate(validateKey),
		),
	).Run()
	if err != nil {
		return err
	}

	clearScreen("STEP 3: WALLET")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("How should the client act?").
				Options(
					huh.NewOption("Sign with a keypair file", "keypair"),
					huh.NewOption("Watch an address (no signing)", "watch"),
				).
				Value(&a.WalletKind),
		),
	).Run()
	if err != nil {
		return err
	}

	walletInput := huh.NewInput().
		Title("Keypair file").
		Description("solana-keygen JSON file").
		Value(&a.Keypair)
	if a.WalletKind == "watch" {
		walletInput = huh.NewInput().
			Title("Wallet address").
			Value(&a.Owner).
			Validate(validateKey)
	}
	if err = huh.NewForm(huh.NewGroup(walletInput)).Run(); err != nil {
		return err
	}

	clearScreen("STEP 4: TOKEN STANDARDS")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Detect Token-2022 mints by").
				Options(
					huh.NewOption("Mint authority", config.DetectionMintAuthority),
					huh.NewOption("Owning program", config.DetectionOwner),
				).
				Value(&a.Detection),
			huh.NewConfirm().
				Title("Refuse mints whose standard cannot be detected?").
				Value(&a.StrictDetection),
		),
	).Run()
	if err != nil {
		return err
	}

	clearScreen("STEP 5: SUBMISSION")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Commitment").
				Options(
					huh.NewOption("Processed", string(rpc.CommitmentProcessed)),
					huh.NewOption("Confirmed", string(rpc.CommitmentConfirmed)),
					huh.NewOption("Finalized", string(rpc.CommitmentFinalized)),
				).
				Value(&a.Commitment),
			huh.NewInput().
				Title("Confirmation timeout").
				Description("Duration string (e.g. 30s, 1m)").
				Value(&a.ConfirmTimeout).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	clearScreen("STEP 6: API")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen address").
				Value(&a.HTTPAddr),
			huh.NewInput().
				Title("TLS domains").
				Description("Comma separated, empty for plain HTTP").
				Value(&a.TLSDomains),
		),
	).Run()
	if err != nil {
		return err
	}

	cfg, err := BuildConfig(a)
	if err != nil {
		return err
	}

	clearScreen("FINAL CONFIRMATION")
	wallet := cfg.Keypair
	if wallet == "" {
		wallet = cfg.Owner + " (watch only)"
	}
	summary := fmt.Sprintf(
		"RPC: %s\nProgram: %s\nWallet: %s\nDetection: %s (strict: %t)\nCommitment: %s\n",
		cfg.RPCURL, cfg.ProgramID, wallet, cfg.Detection, cfg.StrictDetection, cfg.Commitment,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	if err := WriteConfig(path, cfg); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s", path)))
	return nil
}

func validateKey(s string) error {
	if _, err := solana.PublicKeyFromBase58(s); err != nil {
		return fmt.Errorf("not a valid address")
	}
	return nil
}
