package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	digestagent "github.com/newsdigest-agent/internal/agent/digest"
	"github.com/newsdigest-agent/internal/config"
	"github.com/newsdigest-agent/internal/digest"
	"github.com/newsdigest-agent/internal/models"
	"github.com/newsdigest-agent/internal/scheduler"
	"github.com/newsdigest-agent/internal/source"
	"github.com/newsdigest-agent/internal/source/newsdata"
	"github.com/newsdigest-agent/internal/source/rss"
	"github.com/newsdigest-agent/internal/storage"
	"github.com/newsdigest-agent/internal/storage/sqlite"
	"github.com/newsdigest-agent/internal/whatsapp"
	"github.com/newsdigest-agent/pkg/logger"
	"github.com/newsdigest-agent/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	repo    storage.Repository
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "newsbot",
		Short: "WhatsApp news digest agent",
		Long: `Headless access to the news digest operations: configure the
digest, send a one-off test message, and inspect delivery logs.`,
		PersistentPreRunE: initializeApp,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(testCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(logsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	// Initialize storage
	repo, err = sqlite.New(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Run migrations
	if err := repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// newScheduler wires the digest pipeline the same way the server does
func newScheduler() *scheduler.Scheduler {
	limiter := ratelimit.NewDefaultLimiter()

	newsClient := newsdata.NewClient(func() string {
		return config.CredentialsFromEnv().NewsDataAPIKey
	}, limiter, log)

	resolve := func(c *models.DigestConfig) source.ArticleSource {
		if c.Provider == models.ProviderRSS {
			return rss.New(c.FeedURL, limiter, log)
		}
		return newsClient
	}

	sender := whatsapp.NewClient(config.CredentialsFromEnv, limiter, log)
	agent := digestagent.NewAgent(resolve, digest.NewFormatter(), sender, log)
	return scheduler.New(repo, agent, config.CredentialsFromEnv, log)
}

// ============ TEST COMMAND ============

func testCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Send a one-off test digest (1 article) to the configured recipient",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			success, err := newScheduler().RunTest(ctx)
			if err != nil {
				return err
			}

			if success {
				fmt.Println("✅ Test message sent successfully")
			} else {
				fmt.Println("❌ Test message could not be delivered, check the delivery log")
			}
			return nil
		},
	}
}

// ============ CONFIG COMMANDS ============

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Digest configuration commands",
	}

	cmd.AddCommand(configShowCmd())
	cmd.AddCommand(configSetCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the active digest configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			c, err := repo.GetActiveConfig(ctx)
			if err != nil {
				return err
			}
			if c == nil {
				fmt.Println("No configuration yet. Create one with 'newsbot config set'.")
				return nil
			}

			fmt.Printf("Topic:         %s\n", c.Topic)
			fmt.Printf("Recipient:     %s\n", c.Recipient)
			fmt.Printf("Country:       %s\n", c.Country)
			fmt.Printf("Language:      %s\n", c.Language)
			fmt.Printf("Interval:      %d minutes\n", c.IntervalMinutes)
			fmt.Printf("Articles:      %d\n", c.ArticleCount)
			fmt.Printf("Provider:      %s\n", c.Provider)
			if c.FeedURL != "" {
				fmt.Printf("Feed URL:      %s\n", c.FeedURL)
			}
			fmt.Printf("Last updated:  %s\n", c.UpdatedAt.Format(time.RFC3339))
			return nil
		},
	}
}

func configSetCmd() *cobra.Command {
	var (
		topic     string
		recipient string
		country   string
		language  string
		interval  int
		articles  int
		provider  string
		feedURL   string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Create or update the active digest configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			c := &models.DigestConfig{
				Topic:           topic,
				Recipient:       recipient,
				Country:         country,
				Language:        language,
				IntervalMinutes: interval,
				ArticleCount:    articles,
				Provider:        models.Provider(provider),
				FeedURL:         feedURL,
			}

			// Keep unset flags at their current values
			if existing, err := repo.GetActiveConfig(ctx); err == nil && existing != nil {
				if recipient == "" {
					c.Recipient = existing.Recipient
				}
				if topic == "" {
					c.Topic = existing.Topic
				}
				if country == "" {
					c.Country = existing.Country
				}
				if language == "" {
					c.Language = existing.Language
				}
				if interval == 0 {
					c.IntervalMinutes = existing.IntervalMinutes
				}
				if articles == 0 {
					c.ArticleCount = existing.ArticleCount
				}
				if provider == "" {
					c.Provider = existing.Provider
				}
				if feedURL == "" {
					c.FeedURL = existing.FeedURL
				}
			}

			if err := c.Validate(); err != nil {
				return err
			}
			if err := repo.UpsertActiveConfig(ctx, c); err != nil {
				return err
			}

			fmt.Printf("✅ Configuration saved (interval %d minutes, %d articles)\n",
				c.IntervalMinutes, c.ArticleCount)
			return nil
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "search topic (default 'world news')")
	cmd.Flags().StringVar(&recipient, "recipient", "", "WhatsApp recipient, format whatsapp:+1234567890")
	cmd.Flags().StringVar(&country, "country", "", "country code (default 'us')")
	cmd.Flags().StringVar(&language, "language", "", "language code (default 'en')")
	cmd.Flags().IntVar(&interval, "interval", 0, "delivery interval in minutes (min 15)")
	cmd.Flags().IntVar(&articles, "articles", 0, "articles per digest (default 3)")
	cmd.Flags().StringVar(&provider, "provider", "", "article provider: newsdata or rss")
	cmd.Flags().StringVar(&feedURL, "feed-url", "", "feed URL for the rss provider")
	return cmd
}

// ============ LOGS COMMANDS ============

func logsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Delivery log commands",
	}

	cmd.AddCommand(logsListCmd())
	cmd.AddCommand(logsClearCmd())
	return cmd
}

func logsListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent delivery log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			entries, err := repo.ListRecentLogs(ctx, limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No delivery logs yet.")
				return nil
			}

			for _, e := range entries {
				icon := statusIcon(e.Status)
				preview := e.Message
				if r := []rune(preview); len(r) > 80 {
					preview = string(r[:77]) + "..."
				}
				fmt.Printf("%s [%s] %s  %s\n",
					icon, e.Status, e.Timestamp.Format("2006-01-02 15:04:05"), preview)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "number of entries to show")
	return cmd
}

func logsClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all delivery log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := repo.ClearLogs(context.Background()); err != nil {
				return err
			}
			fmt.Println("✅ Logs cleared")
			return nil
		},
	}
}

func statusIcon(status models.LogStatus) string {
	switch status {
	case models.StatusSuccess:
		return "✅"
	case models.StatusWarning:
		return "⚠️ "
	case models.StatusTest:
		return "🧪"
	default:
		return "❌"
	}
}
