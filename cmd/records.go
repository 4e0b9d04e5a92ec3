package cmd

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/vettavista/internal/config"
	"github.com/spigell/vettavista/internal/logger"
	"github.com/spigell/vettavista/internal/models"
	"github.com/spigell/vettavista/internal/storage"
)

const PromptCancel = "cancel"

var errCancelled = errors.New("cancelled")

var blacklistCmd = &cobra.Command{
	Use:   "blacklist",
	Short: "Manage blacklisted companies",
}

var blacklistAddCmd = &cobra.Command{
	Use:   "add [company]",
	Short: "Add a company to the blacklist",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, log := openBlacklist()

		company := firstArg(args)
		if company == "" {
			var err error
			if company, err = ask("Company", true); err != nil {
				return err
			}
		}
		reason, _ := cmd.Flags().GetString("reason")
		notes, _ := cmd.Flags().GetString("notes")

		if err := store.Add(company, reason, notes); err != nil {
			return err
		}
		log.Info("company blacklisted", zap.String(logger.FieldCompany, company))
		return nil
	},
}

var blacklistRemoveCmd = &cobra.Command{
	Use:   "remove [company]",
	Short: "Remove a company from the blacklist",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		store, log := openBlacklist()

		company := firstArg(args)
		if company == "" {
			entries, err := store.All()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				log.Info("blacklist is empty")
				return nil
			}
			items := make([]string, 0, len(entries)+1)
			for _, e := range entries {
				items = append(items, e.Company)
			}
			sel := promptui.Select{
				Label: "Choose a company to remove and press ENTER",
				Items: append(items, PromptCancel),
			}
			if _, company, err = sel.Run(); err != nil {
				return err
			}
			if company == PromptCancel {
				return nil
			}
		}

		if err := store.Remove(company); err != nil {
			return err
		}
		log.Info("company removed from blacklist", zap.String(logger.FieldCompany, company))
		return nil
	},
}

var blacklistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List blacklisted companies",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, _ := openBlacklist()
		entries, err := store.All()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "COMPANY\tREASON\tNOTES\tADDED")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Company, e.Reason, e.Notes, e.DateCreated)
		}
		return w.Flush()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the job application history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked applications",
	RunE: func(cmd *cobra.Command, _ []string) error {
		query, _ := cmd.Flags().GetString("query")
		status, _ := cmd.Flags().GetString("status")
		days, _ := cmd.Flags().GetInt("days")

		if status != "" && !models.ValidApplicationStatus(models.ApplicationStatus(status)) {
			return fmt.Errorf("unknown application status: %s", status)
		}

		settings, log := loadSettings()
		history, err := storage.NewHistory(filepath.Join(settings.Storage.Dir, settings.Storage.HistoryFile), log)
		if err != nil {
			return err
		}
		entries, err := history.Search(query, models.ApplicationStatus(status), days)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "JOB ID\tTITLE\tCOMPANY\tSTATUS\tMATCH\tUPDATED")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", e.JobID, e.Title, e.Company, e.ApplicationStatus, e.MatchStatus, e.DateUpdated)
		}
		return w.Flush()
	},
}

func init() {
	blacklistAddCmd.Flags().StringP("reason", "r", "", "why the company is blacklisted")
	blacklistAddCmd.Flags().StringP("notes", "n", "", "free form notes")
	blacklistCmd.AddCommand(blacklistAddCmd, blacklistRemoveCmd, blacklistListCmd)

	historyListCmd.Flags().StringP("query", "q", "", "match title or company")
	historyListCmd.Flags().StringP("status", "s", "", "application status to filter by")
	historyListCmd.Flags().Int("days", 30, "only applications sent within the last days, 0 for all")
	historyCmd.AddCommand(historyListCmd)

	rootCmd.AddCommand(blacklistCmd, historyCmd)
}

func loadSettings() (*config.Settings, *zap.Logger) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	settings, err := config.NewManager(viper.GetViper(), logger).Load()
	if err != nil {
		logger.Fatal("loading config", zap.Error(err))
	}
	return settings, logger
}

func openBlacklist() (*storage.Blacklist, *zap.Logger) {
	settings, logger := loadSettings()
	store, err := storage.NewBlacklist(filepath.Join(settings.Storage.Dir, settings.Storage.BlacklistFile), logger)
	if err != nil {
		logger.Fatal("opening blacklist", zap.Error(err))
	}
	return store, logger
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return strings.TrimSpace(args[0])
}

// ask reads a line from the terminal.
func ask(label string, required bool) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if required && strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s is required", strings.ToLower(label))
			}
			return nil
		},
	}
	value, err := p.Run()
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) {
		return "", errCancelled
	}
	return strings.TrimSpace(value), err
}
