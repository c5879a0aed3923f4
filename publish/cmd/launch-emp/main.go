package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/unisxapp/launch-emp/internal/logging"
	"github.com/unisxapp/launch-emp/publish"
	"github.com/unisxapp/launch-emp/publish/emp"
	"github.com/unisxapp/launch-emp/publish/registry"
)

const envPrefix = "LAUNCH_EMP"

var logger = logging.NewLogger("root")

// chain is what a deployment needs from a dialed node.
type chain interface {
	emp.Chain
	Close() error
}

type dialFunc func(ctx context.Context, cfg emp.Config) (chain, error)

func dialDeployer(ctx context.Context, cfg emp.Config) (chain, error) {
	var key *ecdsa.PrivateKey
	if cfg.Mnemonic != "" {
		var err error
		key, err = publish.KeyFromMnemonic(cfg.Mnemonic, cfg.AddressIndex)
		if err != nil {
			return nil, err
		}
	}
	return publish.NewDeployer(ctx, cfg.URL, key)
}

type rootCommand struct {
	baseCmd  *cobra.Command
	v        *viper.Viper
	cfgFile  string
	logLevel string
	dial     dialFunc
	out      io.Writer
}

func newRootCommand(dial dialFunc, out io.Writer) *rootCommand {
	rc := &rootCommand{v: viper.New(), dial: dial, out: out}
	rc.baseCmd = &cobra.Command{
		Use:   "launch-emp",
		Short: "Deploy an Expiring Multi-Party contract through its creator factory",
		Long: `launch-emp calls createExpiringMultiParty on the ExpiringMultiPartyCreator
deployed on the connected network and prints the transaction hash.

Options can be given as flags, as LAUNCH_EMP_* environment variables
(e.g. LAUNCH_EMP_MNEMONIC) or in a YAML config file. The config file also
holds the factory addresses per network id:

  addresses:
    ExpiringMultiPartyCreator:
      "1": "0x..."`,
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if rc.logLevel != "" {
				if err := logging.SetupGlobalLevel(rc.logLevel); err != nil {
					return fmt.Errorf("log level: %w", err)
				}
			}
			return rc.loadConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return rc.run(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rc.baseCmd.Flags()
	flags.StringVarP(&rc.cfgFile, "config", "c", "", "Path to config file")
	flags.StringVarP(&rc.logLevel, "log-level", "l", "", "Log level: trace|debug|info|warn|error|fatal|panic (default $LOG_LEVEL or info)")

	flags.String("url", publish.DefaultURL, "Node URL")
	flags.String("mnemonic", "", "Account mnemonic. Defaults to the node's unlocked accounts")
	flags.Uint32("addressIndex", 0, "HD account index used with --mnemonic")
	flags.String("gasprice", "", "Gas price in GWEI, between 1 and 1000 (required)")
	flags.String("priceFeedIdentifier", "", "Price identifier, at most 32 bytes (required)")
	flags.String("collateralAddress", "", "Collateral token address (required)")
	flags.String("expirationTimestamp", "", "Timestamp that the contract will expire at (required)")
	flags.String("syntheticName", "", "Synthetic token long name (required)")
	flags.String("syntheticSymbol", "", "Synthetic token short name (required)")
	flags.String("minSponsorTokens", "", "Minimum sponsor position size (required)")
	flags.String("libraryAddress", emp.DefaultLibraryAddress, "Post expiration financial product library address")
	flags.String("liveness", "", "Liquidation and withdrawal liveness in seconds (default ten years)")
	flags.String("factoryAddress", "", "ExpiringMultiPartyCreator address. Overrides the config registry")
	flags.Bool("simulate", false, "Simulate the deployment with eth_call before sending it")
	flags.Bool("wait", false, "Wait for the receipt and print the new contract address")
	flags.Duration("timeout", emp.DefaultTimeout, "Timeout for the whole deployment")

	return rc
}

func (rc *rootCommand) loadConfig(cmd *cobra.Command) error {
	rc.v.SetEnvPrefix(envPrefix)
	rc.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	rc.v.AutomaticEnv()
	if err := rc.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if rc.cfgFile == "" {
		return nil
	}
	rc.v.SetConfigFile(rc.cfgFile)
	if err := rc.v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	logger.Debug().Msgf("Configuration loaded from %s", rc.cfgFile)
	return nil
}

func (rc *rootCommand) options() emp.Options {
	return emp.Options{
		URL:                 rc.v.GetString("url"),
		Mnemonic:            rc.v.GetString("mnemonic"),
		AddressIndex:        rc.v.GetUint32("addressIndex"),
		GasPrice:            rc.v.GetString("gasprice"),
		PriceFeedIdentifier: rc.v.GetString("priceFeedIdentifier"),
		CollateralAddress:   rc.v.GetString("collateralAddress"),
		ExpirationTimestamp: rc.v.GetString("expirationTimestamp"),
		SyntheticName:       rc.v.GetString("syntheticName"),
		SyntheticSymbol:     rc.v.GetString("syntheticSymbol"),
		MinSponsorTokens:    rc.v.GetString("minSponsorTokens"),
		LibraryAddress:      rc.v.GetString("libraryAddress"),
		Liveness:            rc.v.GetString("liveness"),
		FactoryAddress:      rc.v.GetString("factoryAddress"),
		Simulate:            rc.v.GetBool("simulate"),
		Wait:                rc.v.GetBool("wait"),
		Timeout:             rc.v.GetDuration("timeout"),
	}
}

func (rc *rootCommand) run(ctx context.Context) error {
	cfg, err := rc.options().Validate()
	if err != nil {
		return err
	}

	factories, err := registry.FromConfig(rc.v)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	logger.Debug().Str(logging.FieldUrl, cfg.URL).Msg("Connecting to node")
	c, err := rc.dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := emp.Deploy(ctx, c, factories, cfg)
	if res.TxHash != (common.Hash{}) {
		fmt.Fprintln(rc.out, "Deployed in transaction:", res.TxHash.Hex())
	}
	if err != nil {
		return err
	}
	if cfg.Wait {
		fmt.Fprintln(rc.out, "Expiring Multi-Party address:", res.EMPAddress.Hex())
	}
	return nil
}

func (rc *rootCommand) Execute(ctx context.Context) error {
	return rc.baseCmd.ExecuteContext(ctx)
}

// run executes the command with args and returns the process exit code.
func run(ctx context.Context, args []string, dial dialFunc, stdout, stderr io.Writer) int {
	rc := newRootCommand(dial, stdout)
	rc.baseCmd.SetArgs(append([]string{}, args...))
	rc.baseCmd.SetOut(stdout)
	rc.baseCmd.SetErr(stderr)

	if err := rc.Execute(ctx); err != nil {
		var verr *emp.ValidationError
		if errors.As(err, &verr) {
			for _, v := range verr.Violations {
				logger.Error().Msg(v.String())
			}
		}
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	logging.SetLogSeverityFromEnv()
	os.Exit(run(context.Background(), os.Args[1:], dialDeployer, os.Stdout, os.Stderr))
}
