package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .coinlens.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to coinlens! Let's configure your dashboard backend.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Primary provider selection.
	providerPrompt := promptui.Select{
		Label: "Select primary completion provider",
		Items: []string{"openai", "anthropic"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.PrimaryProvider = ProviderType(providerStr)

	// 2. Port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: strconv.Itoa(cfg.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(portStr)

	// 3. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory (SQLite database location)",
		Default: cfg.DataDir,
	}
	dataDir, err := dataPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	cfg.DataDir = dataDir

	// 4. Optional Redis cache.
	redisPrompt := promptui.Prompt{
		Label:   "Redis URL for the market-data cache (empty to disable)",
		Default: "",
	}
	redisURL, err := redisPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	cfg.RedisURL = redisURL

	// API keys come from OPENAI_API_KEY / ANTHROPIC_API_KEY or the
	// config file; the wizard never writes secrets to disk.
	fmt.Println()
	fmt.Println("Set OPENAI_API_KEY and/or ANTHROPIC_API_KEY in the environment")
	fmt.Println("before starting the server.")

	if err := cfg.Save(".coinlens.yml"); err != nil {
		return nil, err
	}
	fmt.Println("\nConfiguration written to .coinlens.yml")

	return cfg, nil
}
