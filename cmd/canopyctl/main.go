package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/canopy-pki/canopy/pkg/adminclient"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL   string
	adminSecret string
	adminToken  string
	cfgFile     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "canopyctl",
	Short: "Canopy CA management CLI",
	Long: `canopyctl is the command-line interface for a canopyd server.

It manages CAs, certificate profiles, requestors, publishers, users and
their associations, and drives configuration export/import. Certificate
status queries need no credentials; everything else authenticates with
the server's admin secret or a session token.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.canopy")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
		if adminSecret == "" {
			adminSecret = viper.GetString("admin_secret")
		}
		if adminToken == "" {
			adminToken = viper.GetString("admin_token")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.canopy/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "canopyd base URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&adminSecret, "secret", "", "admin secret (exchanged for a session token)")
	rootCmd.PersistentFlags().StringVar(&adminToken, "token", "", "pre-obtained admin session token")

	rootCmd.AddCommand(caCmd)
	rootCmd.AddCommand(aliasCmd)
	rootCmd.AddCommand(newNamedCmd("profile", "profiles", "certificate profiles"))
	rootCmd.AddCommand(newNamedCmd("requestor", "requestors", "request authorities"))
	rootCmd.AddCommand(newNamedCmd("publisher", "publishers", "certificate publishers"))
	rootCmd.AddCommand(newNamedCmd("user", "users", "management users"))
	rootCmd.AddCommand(newNamedCmd("signer", "signers", "CA signers"))
	rootCmd.AddCommand(newNamedCmd("crl-signer", "crl-signers", "CRL signers"))
	rootCmd.AddCommand(newNamedCmd("responder", "responders", "CMP responders"))
	rootCmd.AddCommand(newNamedCmd("cmp-control", "cmp-controls", "CMP controls"))
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(issuersCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(versionCmd)
}

// newClient builds an API client from the persistent flags.
func newClient() *adminclient.Client {
	opts := []adminclient.Option{}
	if adminToken != "" {
		opts = append(opts, adminclient.WithToken(adminToken))
	}
	if adminSecret != "" {
		opts = append(opts, adminclient.WithAdminSecret(adminSecret))
	}
	return adminclient.New(serverURL, opts...)
}

// readSpec loads a JSON document from a file path, or from stdin when the
// path is "-".
func readSpec(path string) (json.RawMessage, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s does not contain valid JSON", path)
	}
	return data, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ── ca ───────────────────────────────────────────────────────────────────────

var caCmd = &cobra.Command{
	Use:   "ca",
	Short: "Manage certificate authorities",
}

var caListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured CAs",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := newClient().ListCas(context.Background())
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

var caShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one CA's full configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := newClient().GetCa(context.Background(), args[0])
		if err != nil {
			return err
		}
		return printJSON(raw)
	},
}

var caSpecFile string

var caAddCmd = &cobra.Command{
	Use:   "add --file <ca.json>",
	Short: "Create a CA from a JSON document",
	Long: `Create a CA. The document uses the admin API's CA request format, e.g.:

  {
    "name": "myca1",
    "status": "active",
    "max_validity": "8760h",
    "sn_size": 20,
    "signer_type": "pkcs12",
    "signer_conf": "...",
    "duplicate_key": "permitted",
    "duplicate_subject": "forbidden",
    "permissions": ["enroll_cert", "revoke_cert"]
  }`,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := readSpec(caSpecFile)
		if err != nil {
			return err
		}
		msg, err := newClient().AddCa(context.Background(), spec)
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	},
}

var caUpdateCmd = &cobra.Command{
	Use:   "update <name> --file <changes.json>",
	Short: "Apply a partial update to a CA",
	Long: `Apply a partial update. Only the fields present in the document change;
string fields accept the value "NULL" to clear them, and URI lists are
cleared by a single-element ["NULL"] list.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := readSpec(caSpecFile)
		if err != nil {
			return err
		}
		msg, err := newClient().UpdateCa(context.Background(), args[0], spec)
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	},
}

var caRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Delete a CA and everything bound to it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := newClient().RemoveCa(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	},
}

var caRevokeReason int

var caRevokeCmd = &cobra.Command{
	Use:   "revoke <name>",
	Short: "Revoke a CA",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := newClient().RevokeCa(context.Background(), args[0], caRevokeReason)
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	},
}

var caUnrevokeCmd = &cobra.Command{
	Use:   "unrevoke <name>",
	Short: "Clear a CA's revocation state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := newClient().UnrevokeCa(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	},
}

var (
	caReqRA          bool
	caReqPermissions []string
	caReqProfiles    []string
)

var caRequestorCmd = &cobra.Command{
	Use:   "requestor",
	Short: "Manage a CA's requestor associations",
}

var caRequestorAddCmd = &cobra.Command{
	Use:   "add <ca> <requestor>",
	Short: "Associate a requestor with a CA",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := newClient().AddRequestorToCa(context.Background(),
			args[0], args[1], caReqRA, caReqPermissions, caReqProfiles)
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	},
}

var caRequestorRemoveCmd = &cobra.Command{
	Use:   "remove <ca> <requestor>",
	Short: "Remove a requestor association",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := newClient().RemoveRequestorFromCa(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	},
}

var caProfileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage a CA's profile associations",
}

var caProfileAddCmd = &cobra.Command{
	Use:   "add <ca> <profile>",
	Short: "Associate a certificate profile with a CA",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := newClient().AddProfileToCa(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	},
}

var caProfileRemoveCmd = &cobra.Command{
	Use:   "remove <ca> <profile>",
	Short: "Remove a profile association",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := newClient().RemoveProfileFromCa(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	},
}

var caPublisherCmd = &cobra.Command{
	Use:   "publisher",
	Short: "Manage a CA's publisher associations",
}

var caPublisherAddCmd = &cobra.Command{
	Use:   "add <ca> <publisher>",
	Short: "Associate a publisher with a CA",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := newClient().AddPublisherToCa(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	},
}

var caPublisherRemoveCmd = &cobra.Command{
	Use:   "remove <ca> <publisher>",
	Short: "Remove a publisher association",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := newClient().RemovePublisherFromCa(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	},
}

func init() {
	caAddCmd.Flags().StringVar(&caSpecFile, "file", "", "JSON document describing the CA (use - for stdin)")
	_ = caAddCmd.MarkFlagRequired("file")
	caUpdateCmd.Flags().StringVar(&caSpecFile, "file", "", "JSON document with the fields to change (use - for stdin)")
	_ = caUpdateCmd.MarkFlagRequired("file")
	caRevokeCmd.Flags().IntVar(&caRevokeReason, "reason", 0, "RFC 5280 revocation reason code")

	caRequestorAddCmd.Flags().BoolVar(&caReqRA, "ra", false, "Register the requestor as an RA")
	caRequestorAddCmd.Flags().StringSliceVar(&caReqPermissions, "permission", nil, "Permission names (repeatable)")
	caRequestorAddCmd.Flags().StringSliceVar(&caReqProfiles, "profile", nil, "Profile names the requestor may use (repeatable)")
	caRequestorCmd.AddCommand(caRequestorAddCmd, caRequestorRemoveCmd)
	caProfileCmd.AddCommand(caProfileAddCmd, caProfileRemoveCmd)
	caPublisherCmd.AddCommand(caPublisherAddCmd, caPublisherRemoveCmd)

	caCmd.AddCommand(caListCmd, caShowCmd, caAddCmd, caUpdateCmd, caRemoveCmd,
		caRevokeCmd, caUnrevokeCmd, caRequestorCmd, caProfileCmd, caPublisherCmd)
}

// ── alias ────────────────────────────────────────────────────────────────────

var aliasCmd = &cobra.Command{
	Use:   "alias",
	Short: "Manage CA aliases",
}

var aliasAddCmd = &cobra.Command{
	Use:   "add <alias> <ca-id>",
	Short: "Bind an alias to a CA id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		caID, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid CA id %q", args[1])
		}
		msg, err := newClient().AddAlias(context.Background(), args[0], caID)
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	},
}

var aliasRemoveCmd = &cobra.Command{
	Use:   "remove <alias>",
	Short: "Delete an alias",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := newClient().RemoveAlias(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	},
}

func init() {
	aliasCmd.AddCommand(aliasAddCmd, aliasRemoveCmd)
}

// ── named entities ───────────────────────────────────────────────────────────

// newNamedCmd builds the command tree for a named-entity kind. Kinds without
// a server-side list endpoint simply return a 404 from "list", which is fine
// for a management tool.
func newNamedCmd(use, kind, what string) *cobra.Command {
	root := &cobra.Command{
		Use:   use,
		Short: "Manage " + what,
	}

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List " + what,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := newClient().ListNamed(context.Background(), kind)
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Show one of the " + what,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := newClient().GetNamed(context.Background(), kind, args[0])
			if err != nil {
				return err
			}
			return printJSON(raw)
		},
	})

	var specFile string
	add := &cobra.Command{
		Use:   "add --file <entry.json>",
		Short: "Create one of the " + what,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := readSpec(specFile)
			if err != nil {
				return err
			}
			msg, err := newClient().AddNamed(context.Background(), kind, spec)
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		},
	}
	add.Flags().StringVar(&specFile, "file", "", "JSON document describing the entry (use - for stdin)")
	_ = add.MarkFlagRequired("file")
	root.AddCommand(add)

	root.AddCommand(&cobra.Command{
		Use:   "remove <name>",
		Short: "Delete one of the " + what,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := newClient().RemoveNamed(context.Background(), kind, args[0])
			if err != nil {
				return err
			}
			fmt.Println(msg)
			return nil
		},
	})

	return root
}

// ── status ───────────────────────────────────────────────────────────────────

var statusFingerprint string

var statusCmd = &cobra.Command{
	Use:   "status <serial> [more serials...]",
	Short: "Query certificate status by serial number",
	Long: `Query the revocation status of certificates. Serials are hexadecimal.

By default the first argument is the numeric issuer id and the rest are
serials. With --fingerprint the issuer is selected by its SHA-256
fingerprint instead:

  canopyctl status 1 0x0ab3f7
  canopyctl status --fingerprint 9f86d0... 0x0ab3f7 0x0ab3f8`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFingerprint, "fingerprint", "", "Hex SHA-256 issuer fingerprint (instead of an issuer id)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	c := newClient()

	var caID int
	serials := args
	if statusFingerprint == "" {
		if len(args) < 2 {
			return fmt.Errorf("usage: canopyctl status <issuer-id> <serial> [more serials...]")
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid issuer id %q", args[0])
		}
		caID = id
		serials = args[1:]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERIAL\tSTATUS\tREASON\tREVOKED AT")
	for _, serial := range serials {
		var res *adminclient.StatusResult
		var err error
		if statusFingerprint != "" {
			res, err = c.CertStatusByFingerprint(ctx, statusFingerprint, serial)
		} else {
			res, err = c.CertStatus(ctx, caID, serial)
		}
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %s\t\t\n", serial, err.Error())
			continue
		}
		revokedAt := ""
		if res.RevokedAt != nil {
			revokedAt = res.RevokedAt.Format("2006-01-02 15:04:05Z07:00")
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", serial, res.Status, res.Reason, revokedAt)
	}
	return w.Flush()
}

var issuersCmd = &cobra.Command{
	Use:   "issuers",
	Short: "List the ids of the loaded issuers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := newClient().ListIssuers(context.Background())
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

// ── export / import ──────────────────────────────────────────────────────────

var exportCmd = &cobra.Command{
	Use:   "export <dir>",
	Short: "Export the server's configuration to an archive directory",
	Long:  `Export writes the configuration archive to a directory on the server host.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		progress, err := newClient().Export(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(progress.Message)
		printProgress(progress.Progress)
		return nil
	},
}

var importStrict bool

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import a configuration archive directory",
	Long: `Import applies an archive from a directory on the server host. Rows that
collide with existing entries are skipped with a warning; --strict aborts
on the first failure instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		progress, err := newClient().Import(context.Background(), args[0], importStrict)
		if err != nil {
			return err
		}
		fmt.Println(progress.Message)
		printProgress(progress.Progress)
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importStrict, "strict", false, "Abort on the first row that fails to apply")
}

func printProgress(counts map[string]int) {
	tables := make([]string, 0, len(counts))
	for t := range counts {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	total := 0
	for _, t := range tables {
		fmt.Fprintf(w, "  %s\t%d\n", t, counts[t])
		total += counts[t]
	}
	fmt.Fprintf(w, "  total\t%d\n", total)
	w.Flush() //nolint:errcheck
}

// ── token / version ──────────────────────────────────────────────────────────

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Exchange the admin secret for a session token",
	Long: `Exchange the admin secret for a short-lived session token and print it.
Useful for scripting: later invocations can pass --token instead of the
secret.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminSecret == "" {
			return fmt.Errorf("--secret (or admin_secret in the config file) is required")
		}
		tok, err := newClient().FetchToken(context.Background())
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the canopyctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("canopyctl %s\n", strings.TrimSpace(version))
	},
}
