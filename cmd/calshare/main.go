package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"calshare/internal/app"
	"calshare/internal/config"
	"calshare/internal/core"
	"calshare/internal/model"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "EventCreate").
func newApp(operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

// parseTime accepts RFC 3339 timestamps or bare dates (midnight UTC).
func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: use RFC 3339 or YYYY-MM-DD", value)
	}
	return t.UTC(), nil
}

func printDetail(d *model.EventDetail) {
	fmt.Printf("Event:    %s\n", d.Event.ID)
	fmt.Printf("Owner:    %s\n", d.Event.OwnerID)
	fmt.Printf("Version:  %d (%s)\n", d.Current.VersionNumber, d.Current.ID)
	fmt.Printf("Title:    %s\n", d.Current.Title)
	if d.Current.Description != "" {
		fmt.Printf("Desc:     %s\n", d.Current.Description)
	}
	fmt.Printf("Start:    %s\n", d.Current.StartTime.Format(time.RFC3339))
	fmt.Printf("End:      %s\n", d.Current.EndTime.Format(time.RFC3339))
	if d.Current.Location != "" {
		fmt.Printf("Location: %s\n", d.Current.Location)
	}
	if d.Current.IsRecurring {
		fmt.Printf("Repeats:  %s\n", d.Current.RecurrencePattern)
	}
	fmt.Printf("Shared with %d user(s)\n", len(d.Permissions))
}

func printVersions(versions []*model.EventVersion, total int) {
	for _, v := range versions {
		fmt.Printf("v%-4d %s  %s  %s  by %s\n",
			v.VersionNumber,
			v.ID,
			v.ChangedAt.Format("2006-01-02 15:04:05"),
			v.Title,
			v.ChangedByUserID,
		)
	}
	fmt.Printf("(%d of %d versions)\n", len(versions), total)
}

var rootCmd = &cobra.Command{
	Use:   "calshare",
	Short: "Collaborative event manager",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		fmt.Printf("Database: %s (%s)\n", cfg.Database.Type, cfg.Database.DataDir)
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:    %s (%s)\n", v.Name, v.Type)
		}
		return nil
	},
}

// migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Migrate")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.MigrateUp(); err != nil {
			return fmt.Errorf("migrating: %w", err)
		}
		fmt.Println("Database is up to date.")
		return nil
	},
}

// user command
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userCreateCmd = &cobra.Command{
	Use:   "create USERNAME EMAIL",
	Short: "Create a user",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}

		a, err := newApp("UserCreate")
		if err != nil {
			return err
		}
		defer a.Close()

		user, err := a.CreateUser(args[0], args[1], password)
		if err != nil {
			return err
		}
		fmt.Printf("Created user %s (%s)\n", user.Username, user.ID)
		return nil
	},
}

// event command
var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Manage events",
}

func contentFromFlags(cmd *cobra.Command) (model.EventContent, error) {
	var content model.EventContent
	var err error

	content.Title, _ = cmd.Flags().GetString("title")
	content.Description, _ = cmd.Flags().GetString("description")
	content.Location, _ = cmd.Flags().GetString("location")

	start, _ := cmd.Flags().GetString("start")
	if start != "" {
		if content.StartTime, err = parseTime(start); err != nil {
			return content, err
		}
	}
	end, _ := cmd.Flags().GetString("end")
	if end != "" {
		if content.EndTime, err = parseTime(end); err != nil {
			return content, err
		}
	}

	rrule, _ := cmd.Flags().GetString("rrule")
	if rrule != "" {
		content.IsRecurring = true
		content.RecurrencePattern = rrule
	}
	return content, nil
}

var eventCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an event",
	RunE: func(cmd *cobra.Command, args []string) error {
		asUser, _ := cmd.Flags().GetString("as")
		content, err := contentFromFlags(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("EventCreate")
		if err != nil {
			return err
		}
		defer a.Close()

		detail, err := a.CreateEvent(asUser, content)
		if err != nil {
			return err
		}
		printDetail(detail)
		return nil
	},
}

var eventImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Create a batch of events from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asUser, _ := cmd.Flags().GetString("as")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		var contents []model.EventContent
		if err := json.Unmarshal(data, &contents); err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}
		if len(contents) == 0 {
			return fmt.Errorf("%s contains no events", args[0])
		}

		a, err := newApp("EventImport")
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.CreateEvents(asUser, contents)
		if err != nil {
			return err
		}

		// Events are created independently: failures are reported but do
		// not roll back the rest of the batch.
		var failed int
		for i, r := range results {
			if r.Err != nil {
				failed++
				fmt.Printf("item %d: %v\n", i, r.Err)
				continue
			}
			fmt.Printf("item %d: created %s (%s)\n", i, r.Event.Event.ID, r.Event.Current.Title)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d events failed", failed, len(results))
		}
		return nil
	},
}

var eventShowCmd = &cobra.Command{
	Use:   "show EVENT_ID",
	Short: "Show an event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asUser, _ := cmd.Flags().GetString("as")

		a, err := newApp("EventShow")
		if err != nil {
			return err
		}
		defer a.Close()

		detail, err := a.GetEvent(args[0], asUser)
		if err != nil {
			return err
		}
		printDetail(detail)
		return nil
	},
}

var eventListCmd = &cobra.Command{
	Use:   "list",
	Short: "List events, expanding recurrences over a window",
	RunE: func(cmd *cobra.Command, args []string) error {
		asUser, _ := cmd.Flags().GetString("as")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		opts := core.ListOptions{Limit: limit, Offset: offset}
		if from, _ := cmd.Flags().GetString("from"); from != "" {
			t, err := parseTime(from)
			if err != nil {
				return err
			}
			opts.From = &t
		}
		if to, _ := cmd.Flags().GetString("to"); to != "" {
			t, err := parseTime(to)
			if err != nil {
				return err
			}
			opts.To = &t
		}

		a, err := newApp("EventList")
		if err != nil {
			return err
		}
		defer a.Close()

		occurrences, total, err := a.ListEvents(asUser, opts)
		if err != nil {
			return err
		}

		if len(occurrences) == 0 {
			fmt.Println("No events found.")
			return nil
		}
		for _, o := range occurrences {
			marker := " "
			if o.IsRecurring {
				marker = "R"
			}
			fmt.Printf("%s %s  %s - %s  %s\n",
				marker,
				o.EventID,
				o.Start.Format("2006-01-02 15:04"),
				o.End.Format("2006-01-02 15:04"),
				o.Title,
			)
		}
		fmt.Printf("(%d of %d)\n", len(occurrences), total)
		return nil
	},
}

var eventUpdateCmd = &cobra.Command{
	Use:   "update EVENT_ID",
	Short: "Update an event, creating a new version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asUser, _ := cmd.Flags().GetString("as")

		// Only flags the user actually set become part of the patch:
		// unset fields keep their current values.
		var patch core.ContentPatch
		if cmd.Flags().Changed("title") {
			v, _ := cmd.Flags().GetString("title")
			patch.Title = &v
		}
		if cmd.Flags().Changed("description") {
			v, _ := cmd.Flags().GetString("description")
			patch.Description = &v
		}
		if cmd.Flags().Changed("location") {
			v, _ := cmd.Flags().GetString("location")
			patch.Location = &v
		}
		if cmd.Flags().Changed("start") {
			raw, _ := cmd.Flags().GetString("start")
			t, err := parseTime(raw)
			if err != nil {
				return err
			}
			patch.StartTime = &t
		}
		if cmd.Flags().Changed("end") {
			raw, _ := cmd.Flags().GetString("end")
			t, err := parseTime(raw)
			if err != nil {
				return err
			}
			patch.EndTime = &t
		}
		if cmd.Flags().Changed("rrule") {
			v, _ := cmd.Flags().GetString("rrule")
			recurring := v != ""
			patch.IsRecurring = &recurring
			patch.RecurrencePattern = &v
		}

		a, err := newApp("EventUpdate")
		if err != nil {
			return err
		}
		defer a.Close()

		detail, err := a.UpdateEvent(args[0], asUser, patch)
		if err != nil {
			return err
		}
		printDetail(detail)
		return nil
	},
}

var eventDeleteCmd = &cobra.Command{
	Use:   "delete EVENT_ID",
	Short: "Delete an event and its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asUser, _ := cmd.Flags().GetString("as")

		a, err := newApp("EventDelete")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteEvent(args[0], asUser); err != nil {
			return err
		}
		fmt.Printf("Deleted event %s\n", args[0])
		return nil
	},
}

var eventRollbackCmd = &cobra.Command{
	Use:   "rollback EVENT_ID VERSION_ID",
	Short: "Restore a prior version's content as a new version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		asUser, _ := cmd.Flags().GetString("as")

		a, err := newApp("EventRollback")
		if err != nil {
			return err
		}
		defer a.Close()

		detail, err := a.RollbackEvent(args[0], args[1], asUser)
		if err != nil {
			return err
		}
		printDetail(detail)
		return nil
	},
}

var eventHistoryCmd = &cobra.Command{
	Use:   "history EVENT_ID",
	Short: "View version history, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asUser, _ := cmd.Flags().GetString("as")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		a, err := newApp("EventHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		versions, total, err := a.GetHistory(args[0], asUser, limit, offset)
		if err != nil {
			return err
		}
		printVersions(versions, total)
		return nil
	},
}

var eventChangelogCmd = &cobra.Command{
	Use:   "changelog EVENT_ID",
	Short: "View version history, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asUser, _ := cmd.Flags().GetString("as")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		a, err := newApp("EventChangelog")
		if err != nil {
			return err
		}
		defer a.Close()

		versions, total, err := a.GetChangelog(args[0], asUser, limit, offset)
		if err != nil {
			return err
		}
		printVersions(versions, total)
		return nil
	},
}

var eventDiffCmd = &cobra.Command{
	Use:   "diff EVENT_ID VERSION_ID VERSION_ID",
	Short: "Compare two versions field by field",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		asUser, _ := cmd.Flags().GetString("as")

		a, err := newApp("EventDiff")
		if err != nil {
			return err
		}
		defer a.Close()

		changes, err := a.DiffVersions(args[0], args[1], args[2], asUser)
		if err != nil {
			return err
		}

		if len(changes) == 0 {
			fmt.Println("No differences.")
			return nil
		}
		for field, change := range changes {
			fmt.Printf("%s:\n  - %v\n  + %v\n", field, change.Old, change.New)
		}
		return nil
	},
}

var eventShareCmd = &cobra.Command{
	Use:   "share EVENT_ID",
	Short: "Grant or update roles for other users",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asUser, _ := cmd.Flags().GetString("as")
		withSpecs, _ := cmd.Flags().GetStringArray("with")
		if len(withSpecs) == 0 {
			return fmt.Errorf("pass at least one --with USERNAME:ROLE")
		}

		shares := make(map[string]model.Role, len(withSpecs))
		for _, spec := range withSpecs {
			username, roleName, ok := strings.Cut(spec, ":")
			if !ok {
				return fmt.Errorf("invalid --with %q: expected USERNAME:ROLE", spec)
			}
			shares[username] = model.Role(strings.ToLower(roleName))
		}

		a, err := newApp("EventShare")
		if err != nil {
			return err
		}
		defer a.Close()

		grants, err := a.ShareEvent(args[0], shares, asUser)
		if err != nil {
			return err
		}
		for _, g := range grants {
			fmt.Printf("%-10s %s\n", g.Role, g.User.Username)
		}
		return nil
	},
}

var eventRevokeCmd = &cobra.Command{
	Use:   "revoke EVENT_ID USERNAME",
	Short: "Revoke a user's access to an event",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		asUser, _ := cmd.Flags().GetString("as")

		a, err := newApp("EventRevoke")
		if err != nil {
			return err
		}
		defer a.Close()

		deleted, err := a.RevokePermission(args[0], args[1], asUser)
		if err != nil {
			return err
		}
		if deleted {
			fmt.Printf("Revoked access for %s\n", args[1])
		} else {
			fmt.Printf("%s had no access to revoke\n", args[1])
		}
		return nil
	},
}

var eventPermissionsCmd = &cobra.Command{
	Use:   "permissions EVENT_ID",
	Short: "List who can access an event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asUser, _ := cmd.Flags().GetString("as")

		a, err := newApp("EventPermissions")
		if err != nil {
			return err
		}
		defer a.Close()

		grants, err := a.ListPermissions(args[0], asUser)
		if err != nil {
			return err
		}
		for _, g := range grants {
			fmt.Printf("%-10s %s  since %s\n", g.Role, g.User.Username, g.GrantedAt.Format("2006-01-02"))
		}
		return nil
	},
}

// archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Export events to the archive vault",
}

var archiveKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate the archive encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		passphrase, err := promptPassword("Key passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassword("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		a, err := newApp("ArchiveKeygen")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SetupEncryption(passphrase); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}
		fmt.Println("Archive key pair generated.")
		return nil
	},
}

var archiveExportCmd = &cobra.Command{
	Use:   "export EVENT_ID",
	Short: "Export an event with its full history to the vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asUser, _ := cmd.Flags().GetString("as")

		a, err := newApp("ArchiveExport")
		if err != nil {
			return err
		}
		defer a.Close()

		key, err := a.ExportEvent(args[0], asUser)
		if err != nil {
			return err
		}
		fmt.Printf("Archived to %s\n", key)
		return nil
	},
}

var archiveReadCmd = &cobra.Command{
	Use:   "read KEY",
	Short: "Print a stored archive, decrypting if needed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]

		var passphrase string
		if strings.HasSuffix(key, ".age") {
			var err error
			passphrase, err = promptPassword("Key passphrase: ")
			if err != nil {
				return err
			}
		}

		a, err := newApp("ArchiveRead")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.ReadArchive(key, passphrase, os.Stdout)
	},
}

func addContentFlags(cmd *cobra.Command) {
	cmd.Flags().String("title", "", "Event title")
	cmd.Flags().String("description", "", "Event description")
	cmd.Flags().String("start", "", "Start time (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().String("end", "", "End time (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().String("location", "", "Event location")
	cmd.Flags().String("rrule", "", "Recurrence rule (RFC 5545 RRULE)")
}

func init() {
	// every event/archive command acts as a specific user
	for _, c := range []*cobra.Command{
		eventCreateCmd, eventImportCmd, eventShowCmd, eventListCmd, eventUpdateCmd,
		eventDeleteCmd, eventRollbackCmd, eventHistoryCmd, eventChangelogCmd,
		eventDiffCmd, eventShareCmd, eventRevokeCmd, eventPermissionsCmd,
		archiveExportCmd,
	} {
		c.Flags().String("as", "", "Username to act as")
	}

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	userCmd.AddCommand(userCreateCmd)

	addContentFlags(eventCreateCmd)
	addContentFlags(eventUpdateCmd)

	eventListCmd.Flags().String("from", "", "Window start (inclusive)")
	eventListCmd.Flags().String("to", "", "Window end (exclusive)")
	eventListCmd.Flags().IntP("limit", "n", 0, "Maximum entries per page")
	eventListCmd.Flags().Int("offset", 0, "Entries to skip")

	for _, c := range []*cobra.Command{eventHistoryCmd, eventChangelogCmd} {
		c.Flags().IntP("limit", "n", 0, "Maximum versions per page")
		c.Flags().Int("offset", 0, "Versions to skip")
	}

	eventShareCmd.Flags().StringArray("with", nil, "USERNAME:ROLE grant (repeatable)")

	eventCmd.AddCommand(eventCreateCmd)
	eventCmd.AddCommand(eventImportCmd)
	eventCmd.AddCommand(eventShowCmd)
	eventCmd.AddCommand(eventListCmd)
	eventCmd.AddCommand(eventUpdateCmd)
	eventCmd.AddCommand(eventDeleteCmd)
	eventCmd.AddCommand(eventRollbackCmd)
	eventCmd.AddCommand(eventHistoryCmd)
	eventCmd.AddCommand(eventChangelogCmd)
	eventCmd.AddCommand(eventDiffCmd)
	eventCmd.AddCommand(eventShareCmd)
	eventCmd.AddCommand(eventRevokeCmd)
	eventCmd.AddCommand(eventPermissionsCmd)

	archiveCmd.AddCommand(archiveKeygenCmd)
	archiveCmd.AddCommand(archiveExportCmd)
	archiveCmd.AddCommand(archiveReadCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(eventCmd)
	rootCmd.AddCommand(archiveCmd)
}
