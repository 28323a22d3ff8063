// Package setup is the interactive configuration wizard.
package setup

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/tradesignals/config"
	"github.com/vadiminshakov/tradesignals/internal/domain"
)

// DefaultPath is where the wizard writes its configuration.
const DefaultPath = "config.gen.yaml"

const title = "TRADESIGNALS CONFIG WIZARD"

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

// Answers are the wizard inputs. Lists are comma separated.
type Answers struct {
	CryptoSource string
	PriceSource  string
	Interval     string
	Symbols      string
	ForexPairs   string

	Policy     string
	TakeProfit string
	StopLoss   string

	ReasoningProvider string
	APIURL            string
	Model             string
	ConfidenceRange   string

	WatchInterval string
	ServerAddr    string
}

// DefaultAnswers pre-fills the wizard from the configuration defaults.
func DefaultAnswers() (Answers, error) {
	tmp, err := config.Defaults()
	if err != nil {
		return Answers{}, err
	}
	return Answers{
		CryptoSource:      tmp.MarketData.CryptoSource,
		PriceSource:       tmp.MarketData.PriceSource,
		Interval:          tmp.MarketData.Interval,
		Policy:            tmp.Scoring.Policy,
		TakeProfit:        tmp.Risk.TakeProfitPercent,
		StopLoss:          tmp.Risk.StopLossPercent,
		ReasoningProvider: tmp.Reasoning.Provider,
		APIURL:            "https://openrouter.ai/api/v1/chat/completions",
		Model:             "deepseek/deepseek-chat",
		ConfidenceRange:   tmp.Reasoning.ConfidenceRange,
		WatchInterval:     tmp.Batch.WatchInterval,
		ServerAddr:        tmp.Server.Addr,
	}, nil
}

// Build turns answers into a raw configuration and checks that it loads.
func Build(a Answers) (config.ConfigTmp, error) {
	tmp, err := config.Defaults()
	if err != nil {
		return config.ConfigTmp{}, err
	}

	tmp.MarketData.CryptoSource = a.CryptoSource
	tmp.MarketData.PriceSource = a.PriceSource
	tmp.MarketData.Interval = a.Interval
	tmp.Scoring.Policy = a.Policy
	tmp.Risk.TakeProfitPercent = a.TakeProfit
	tmp.Risk.StopLossPercent = a.StopLoss
	tmp.Batch.WatchInterval = a.WatchInterval
	tmp.Server.Addr = a.ServerAddr

	tmp.Reasoning.Provider = a.ReasoningProvider
	if a.ReasoningProvider != "none" {
		tmp.Reasoning.APIURL = a.APIURL
		tmp.Reasoning.Model = a.Model
		tmp.Reasoning.ConfidenceRange = a.ConfidenceRange
	}

	for _, s := range splitList(a.Symbols) {
		tmp.Instruments = append(tmp.Instruments, config.InstrumentTmp{Symbol: s, Market: string(domain.MarketCrypto)})
	}
	tmp.ForexPairs = splitList(a.ForexPairs)

	if _, err := config.FromTmp(tmp); err != nil {
		return config.ConfigTmp{}, err
	}
	return tmp, nil
}

// Write stores the configuration as YAML.
func Write(path string, tmp config.ConfigTmp) error {
	data, err := yaml.Marshal(tmp)
	if err != nil {
		return errors.Wrap(err, "failed to generate yaml")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to save config file")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = domain.NormalizeSymbol(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func step(name string) {
	fmt.Print("\033[H\033[2J") // clear screen
	fmt.Println(headerStyle.Render(title))
	fmt.Println(stepStyle.Render(name))
}

// RunTUI launches the wizard and writes the result to path.
func RunTUI(path string) error {
	if path == "" {
		path = DefaultPath
	}
	a, err := DefaultAnswers()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render(title))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Signals for crypto and forex in a few steps.\n"))

	fmt.Println(stepStyle.Render("STEP 1: MARKET DATA"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Crypto price history").
				Options(
					huh.NewOption("CoinGecko (no key)", "coingecko"),
					huh.NewOption("Binance", "binance"),
					huh.NewOption("Bybit", "bybit"),
					huh.NewOption("Hyperliquid", "hyperliquid"),
					huh.NewOption("Replay recorded prices", "replay"),
				).
				Value(&a.CryptoSource),
			huh.NewSelect[string]().
				Title("Live price for risk levels").
				Options(
					huh.NewOption("Last close", "none"),
					huh.NewOption("Binance", "binance"),
					huh.NewOption("Bybit", "bybit"),
					huh.NewOption("Hyperliquid", "hyperliquid"),
				).
				Value(&a.PriceSource),
			huh.NewInput().
				Title("Candle interval").
				Description("Exchange sources only (e.g. 15m, 1h, 4h, 1d)").
				Value(&a.Interval),
		),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 2: INSTRUMENTS")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Crypto symbols").
				Description("Comma separated, empty for the top coins (e.g. BTC, ETH, SOL)").
				Value(&a.Symbols).
				Validate(validateList),
			huh.NewInput().
				Title("Forex pairs").
				Description("Comma separated, empty for the majors (e.g. EURUSD, USDJPY)").
				Value(&a.ForexPairs).
				Validate(validateList),
		),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 3: SCORING AND RISK")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Rule-based scoring").
				Options(
					huh.NewOption("Weighted composite", "weighted"),
					huh.NewOption("Buy/sell vote split", "split"),
				).
				Value(&a.Policy),
			huh.NewInput().
				Title("Take profit %").
				Value(&a.TakeProfit).
				Validate(validatePercent),
			huh.NewInput().
				Title("Stop loss %").
				Value(&a.StopLoss).
				Validate(validatePercent),
		),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 4: REASONING SERVICE")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Ask a language model before the rules?").
				Options(
					huh.NewOption("No, rules only", "none"),
					huh.NewOption("OpenAI compatible API", "openai"),
					huh.NewOption("Agent endpoint", "a0"),
				).
				Value(&a.ReasoningProvider),
		),
	).Run()
	if err != nil {
		return err
	}

	if a.ReasoningProvider != "none" {
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("API URL").
					Value(&a.APIURL),
				huh.NewInput().
					Title("Model").
					Value(&a.Model),
				huh.NewSelect[string]().
					Title("Confidence range").
					Options(
						huh.NewOption("Full 0-100", "full"),
						huh.NewOption("Production 80-99", "production"),
					).
					Value(&a.ConfidenceRange),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	step("STEP 5: SCHEDULE")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Watch interval").
				Description("Duration between batches (e.g. 1m, 5m, 1h)").
				Value(&a.WatchInterval).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
			huh.NewInput().
				Title("HTTP listen address").
				Value(&a.ServerAddr),
		),
	).Run()
	if err != nil {
		return err
	}

	tmp, err := Build(a)
	if err != nil {
		return err
	}

	step("FINAL CONFIRMATION")
	summary := fmt.Sprintf(
		"Crypto source: %s\nPrice source: %s\nSymbols: %s\nForex: %s\nScoring: %s\nReasoning: %s\nWatch: %s\n",
		a.CryptoSource, a.PriceSource, orDefault(a.Symbols, "top coins"), orDefault(a.ForexPairs, "majors"),
		a.Policy, a.ReasoningProvider, a.WatchInterval,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	var confirm bool
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return errors.New("setup cancelled by user")
	}

	if err := Write(path, tmp); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf(
		"\nConfiguration saved to %s\nSecrets go to .env: %s, %s", path, config.EnvReasoningAPIKey, config.EnvForexAPIKey)))
	return nil
}

func validateList(s string) error {
	for _, sym := range splitList(s) {
		if err := domain.ValidateSymbol(sym); err != nil {
			return err
		}
	}
	return nil
}

func validatePercent(s string) error {
	d, err := decimal.NewFromString(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if !d.IsPositive() || d.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return fmt.Errorf("must be between 0 and 100")
	}
	return nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
