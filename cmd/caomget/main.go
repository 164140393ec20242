// Command caomget retrieves archive files through the CADC data web
// service.
//
// Usage:
//
//	caomget [flags] ad:ARCHIVE/file_id ...
//	caomget [flags] --archive ARCHIVE file_id ...
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/eaobservatory/caomtools/config"
	"github.com/eaobservatory/caomtools/dataweb"
	"github.com/eaobservatory/caomtools/logging"
)

var adURIRegexp = regexp.MustCompile(`^ad:([A-Z]+)/([a-zA-Z0-9._-]+)$`)

type options struct {
	configPath string
	workdir    string
	archive    string
	logPath    string
	headerOnly bool
	noClobber  bool
	verbose    bool
}

func parseFlags() (options, []string) {
	var opts options
	pflag.StringVarP(&opts.configPath, "config", "c", "", "configuration file (default ~/"+config.DefaultPath+")")
	pflag.StringVarP(&opts.workdir, "workdir", "w", ".", "directory to download into")
	pflag.StringVarP(&opts.archive, "archive", "a", "", "archive for bare file id arguments")
	pflag.StringVar(&opts.logPath, "log", "", "log file (default <workdir>/caomget_stamp-....log)")
	pflag.BoolVar(&opts.headerOnly, "header-only", false, "retrieve FITS headers only")
	pflag.BoolVar(&opts.noClobber, "noclobber", false, "skip files that already exist")
	pflag.BoolVarP(&opts.verbose, "verbose", "v", false, "mirror all log records to the console")
	pflag.Parse()
	return opts, pflag.Args()
}

func main() {
	opts, args := parseFlags()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "caomget: no files requested")
		pflag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, args); err != nil {
		fmt.Fprintln(os.Stderr, "caomget:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, args []string) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}

	logPath := opts.logPath
	if logPath == "" {
		logPath = logging.DefaultPath(opts.workdir, "caomget")
	}
	logOpts := []logging.Option{}
	if opts.verbose {
		logOpts = append(logOpts, logging.WithConsoleLevel(slog.LevelDebug))
	}
	logger, err := logging.New(logPath, logOpts...)
	if err != nil {
		return err
	}
	defer logger.Close()

	client, err := newClient(cfg, opts, logger)
	if err != nil {
		return err
	}

	getOpts := []dataweb.GetOption{}
	if opts.headerOnly {
		getOpts = append(getOpts, dataweb.GetWithHeaderOnly())
	}
	if opts.noClobber {
		getOpts = append(getOpts, dataweb.GetWithNoClobber())
	}

	for _, arg := range args {
		archive, fileID, err := parseTarget(arg, opts.archive)
		if err != nil {
			return err
		}

		path, err := client.Get(ctx, archive, fileID, getOpts...)
		if err != nil {
			return fmt.Errorf("get %s: %w", arg, err)
		}
		logger.Info("retrieved file", "archive", archive, "file_id", fileID, "path", path)
		fmt.Println(path)
	}
	return nil
}

// loadConfig reads the named configuration file, or the default one if
// it exists. A missing default file yields an empty configuration.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	path, err := config.Path()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return &config.Config{}, nil
	}
	return config.Load(path)
}

func newClient(cfg *config.Config, opts options, logger *logging.Logger) (*dataweb.Client, error) {
	clientOpts := []dataweb.Option{dataweb.WithLogger(logger.Logger)}
	if cfg.DataWeb.BaseURL != "" {
		clientOpts = append(clientOpts, dataweb.WithBaseURL(cfg.DataWeb.BaseURL))
	}
	proxy, err := cfg.ProxyPath()
	if err != nil {
		return nil, err
	}
	if proxy != "" {
		clientOpts = append(clientOpts, dataweb.WithProxyCert(proxy))
	}
	return dataweb.NewClient(opts.workdir, clientOpts...)
}

// parseTarget resolves an argument into an archive and file id. An
// ad URI carries its own archive; a bare file id needs --archive.
func parseTarget(arg, defaultArchive string) (archive, fileID string, err error) {
	if m := adURIRegexp.FindStringSubmatch(arg); m != nil {
		return m[1], m[2], nil
	}
	if defaultArchive == "" {
		return "", "", fmt.Errorf("not an ad URI and no --archive given: %s", arg)
	}
	return defaultArchive, arg, nil
}
