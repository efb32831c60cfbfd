// This program performs administrative tasks against the stored blocks of
// a node that is not running.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/conf/v3"
	"github.com/zimcoin/ledger/app/tooling/admin/commands"
	"github.com/zimcoin/ledger/foundation/blockchain/database"
	"github.com/zimcoin/ledger/foundation/blockchain/genesis"
	"github.com/zimcoin/ledger/foundation/blockchain/state"
	"github.com/zimcoin/ledger/foundation/blockchain/storage/disk"
	"github.com/zimcoin/ledger/foundation/blockchain/storage/leveldb"
	"github.com/zimcoin/ledger/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		if !errors.Is(err, commands.ErrHelp) {
			log.Errorw("startup", "ERROR", err)
		}
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {
	cfg := struct {
		conf.Version
		Args    conf.Args
		Genesis string `conf:"default:zblock/genesis.json"`
		Storage string `conf:"default:disk,help:disk|leveldb"`
		DBPath  string `conf:"default:zblock/miner1/"`
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "zimcoin ledger admin",
		},
	}

	const prefix = "ADMIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	gen, err := genesis.Load(cfg.Genesis)
	if err != nil {
		return fmt.Errorf("loading genesis: %w", err)
	}

	var strg database.Serializer
	switch cfg.Storage {
	case "disk":
		strg, err = disk.New(cfg.DBPath)
	case "leveldb":
		strg, err = leveldb.New(cfg.DBPath)
	default:
		err = fmt.Errorf("unknown storage %q", cfg.Storage)
	}
	if err != nil {
		return err
	}

	// Every stored block is validated again while the chain is loaded.
	st, err := state.New(state.Config{
		Storage: strg,
		Genesis: gen,
		EvHandler: func(v string, args ...any) {
			log.Debugw(fmt.Sprintf(v, args...))
		},
	})
	if err != nil {
		strg.Close()
		return fmt.Errorf("loading chain: %w", err)
	}
	defer st.Shutdown()

	return processCommands(cfg.Args, st)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args conf.Args, st *state.State) error {
	switch args.Num(0) {
	case "bals":
		if err := commands.Balances(os.Stdout, args.Num(1), st); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}

	case "blocks":
		if err := commands.Blocks(os.Stdout, args.Num(1), st); err != nil {
			return fmt.Errorf("getting blocks: %w", err)
		}

	default:
		fmt.Println("bals [account]:   show the canonical balances")
		fmt.Println("blocks [account]: show the canonical blocks")
		return commands.ErrHelp
	}

	return nil
}
