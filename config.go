package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	adminPassword     string
	bind              string
	boardTimeout      time.Duration
	highlightDuration time.Duration
	port              int
	prefix            string
	profile           bool
	title             string
	tlsCert           string
	tlsKey            string
	verbose           bool
	version           bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.highlightDuration <= 0 {
		return fmt.Errorf("invalid highlight duration (must be positive): %s", c.highlightDuration)
	}
	if strings.TrimSpace(c.title) == "" {
		return errors.New("board title must not be empty")
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("POINTSBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "pointsboard",
		Short:         "A live points leaderboard, served as a single self-contained webapp.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&cfg.adminPassword, "admin-password", "", "shared secret for admin logins; empty disables them (env: POINTSBOARD_ADMIN_PASSWORD)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: POINTSBOARD_BIND)")
	fs.DurationVar(&cfg.boardTimeout, "board-timeout", 60*time.Minute, "time before idle boards are discarded (env: POINTSBOARD_BOARD_TIMEOUT)")
	fs.DurationVar(&cfg.highlightDuration, "highlight-duration", 3*time.Second, "how long a declared winner stays highlighted (env: POINTSBOARD_HIGHLIGHT_DURATION)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: POINTSBOARD_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: POINTSBOARD_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: POINTSBOARD_PROFILE)")
	fs.StringVar(&cfg.title, "title", "Student Rankings", "board title, also used to name snapshots (env: POINTSBOARD_TITLE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: POINTSBOARD_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: POINTSBOARD_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: POINTSBOARD_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: POINTSBOARD_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("pointsboard v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
