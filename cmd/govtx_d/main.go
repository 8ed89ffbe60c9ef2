package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/ssh/terminal"

	"github.com/lidofinance/govtx/client/api"
	"github.com/lidofinance/govtx/client/config"
	"github.com/lidofinance/govtx/client/modules/keystore"
	"github.com/lidofinance/govtx/client/modules/logger"
	"github.com/lidofinance/govtx/client/services"
)

const flagOverwrite = "overwrite"

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(viper.New(), cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	return cfg, nil
}

// putKeys saves the key pair unless the user already has one and overwrite is not set
func putKeys(cmd *cobra.Command, cfg *config.Config, keyPair *keystore.KeyPair) error {
	overwrite, err := cmd.Flags().GetBool(flagOverwrite)
	if err != nil {
		return fmt.Errorf("failed to read configuration: %v", err)
	}
	network, err := cfg.Network()
	if err != nil {
		return err
	}

	keyStore, err := keystore.NewLevelDBKeyStore(cfg.KeyStoreDBDSN)
	if err != nil {
		return fmt.Errorf("failed to init key store: %w", err)
	}
	defer keyStore.Close()

	_, err = keyStore.LoadKeys(cfg.Username, "")
	switch {
	case err == nil && !overwrite:
		return fmt.Errorf("user %s already has a keypair, use --%s to replace it", cfg.Username, flagOverwrite)
	case err != nil && !errors.Is(err, keystore.ErrKeyNotFound):
		return fmt.Errorf("failed to read key store: %w", err)
	}

	if err = keyStore.PutKeys(cfg.Username, keyPair); err != nil {
		return fmt.Errorf("failed to save keypair: %w", err)
	}
	fmt.Printf("keypair generated for user %s and saved to %s\n", cfg.Username, cfg.KeyStoreDBDSN)
	fmt.Printf("address: %s\n", keyPair.Address(network.SS58Prefix))
	return nil
}

func genKeyPairCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen_keys",
		Short: "generates a keypair from a fresh mnemonic to sign transactions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			mnemonic, err := keystore.NewMnemonic()
			if err != nil {
				return fmt.Errorf("failed to generate mnemonic: %w", err)
			}
			keyPair, err := keystore.NewKeyPairFromMnemonic(mnemonic, "")
			if err != nil {
				return err
			}
			if err := putKeys(cmd, cfg, keyPair); err != nil {
				return err
			}
			fmt.Printf("mnemonic, write it down and keep it secret:\n%s\n", mnemonic)
			return nil
		},
	}
	cmd.Flags().Bool(flagOverwrite, false, "Replace an existing keypair")
	return cmd
}

func readMnemonic() (string, error) {
	fmt.Print("Enter mnemonic: ")
	fd := int(os.Stdin.Fd())
	if terminal.IsTerminal(fd) {
		mnemonic, err := terminal.ReadPassword(fd)
		fmt.Println()
		return strings.TrimSpace(string(mnemonic)), err
	}
	mnemonic, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && mnemonic == "" {
		return "", err
	}
	return strings.TrimSpace(mnemonic), nil
}

func importMnemonicCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import_mnemonic",
		Short: "derives the signing keypair from an existing mnemonic read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			mnemonic, err := readMnemonic()
			if err != nil {
				return fmt.Errorf("failed to read mnemonic: %w", err)
			}
			keyPair, err := keystore.NewKeyPairFromMnemonic(mnemonic, "")
			if err != nil {
				return err
			}
			return putKeys(cmd, cfg, keyPair)
		},
	}
	cmd.Flags().Bool(flagOverwrite, false, "Replace an existing keypair")
	return cmd
}

func startClientCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "starts the governance transaction daemon",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := loadConfig(cmd)
			if err != nil {
				log.Fatal(err.Error())
			}

			l := logger.NewLoggerWithOutput(cfg.Username, os.Stdout, logger.ParseLevel(cfg.LogLevel))

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := services.InitServices(ctx, cfg, l); err != nil {
				log.Fatalf("Failed to init services: %v", err)
			}
			sp := services.App()
			defer sp.Close()

			if err := api.Run(ctx, cfg, sp); err != nil {
				l.Error(err, "HTTP server error")
				return
			}
			l.Log("Received signal, daemon stopped")
		},
	}
}

var rootCmd = &cobra.Command{
	Use:   "govtx_d",
	Short: "governance transaction daemon for RFP and tip flows",
}

func main() {
	rootCmd.AddCommand(
		startClientCommand(),
		genKeyPairCommand(),
		importMnemonicCommand(),
	)
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Failed to execute root command: %v", err)
	}
}
