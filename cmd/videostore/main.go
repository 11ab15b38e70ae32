// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"storj.io/common/cfgstruct"
	"storj.io/common/fpath"
	"storj.io/common/process"
	"storj.io/videostore/recordingdb"
)

var (
	rootCmd = &cobra.Command{
		Use:   "videostore",
		Short: "Video recording store",
	}
	setupCmd = &cobra.Command{
		Use:         "setup",
		Short:       "Create config files",
		RunE:        cmdSetup,
		Annotations: map[string]string{"type": "setup"},
	}
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the purge chores",
		RunE:  cmdRun,
	}
	schemaCmd = &cobra.Command{
		Use:   "create-schema",
		Short: "Create the recording tables",
		RunE:  cmdCreateSchema,
	}
	purgeCmd = &cobra.Command{
		Use:   "purge",
		Short: "Purge every deleted recording that is due once",
		RunE:  cmdPurge,
	}
	placePurgeCmd = &cobra.Command{
		Use:   "place-purge",
		Short: "Execute every due place purge once",
		RunE:  cmdPlacePurge,
	}
	confDir string

	runCfg   Config
	setupCfg Config
)

func cmdSetup(cmd *cobra.Command, args []string) (err error) {
	setupDir, err := filepath.Abs(confDir)
	if err != nil {
		return err
	}

	valid, _ := fpath.IsValidSetupDir(setupDir)
	if !valid {
		return fmt.Errorf("videostore configuration already exists (%v)", setupDir)
	}

	err = os.MkdirAll(setupDir, 0700)
	if err != nil {
		return err
	}

	return process.SaveConfig(cmd, filepath.Join(setupDir, "config.yaml"))
}

// openPeer opens the store configured in runCfg and wires the peer on top of it.
func openPeer(cmd *cobra.Command) (*Peer, error) {
	ctx, _ := process.Ctx(cmd)
	log := zap.L()

	store, err := openStore(ctx, log, runCfg.StoreURL, runCfg.DebugStore)
	if err != nil {
		return nil, errs.New("Error opening recording store: %+v", err)
	}

	peer, err := NewPeer(ctx, log, store, runCfg)
	if err != nil {
		return nil, errs.New("Error creating videostore peer: %+v", err)
	}
	return peer, nil
}

func cmdRun(cmd *cobra.Command, args []string) (err error) {
	ctx, _ := process.Ctx(cmd)

	peer, err := openPeer(cmd)
	if err != nil {
		return err
	}

	runError := peer.Run(ctx)
	closeError := peer.Close()
	return errs.Combine(runError, closeError)
}

func cmdCreateSchema(cmd *cobra.Command, args []string) (err error) {
	ctx, _ := process.Ctx(cmd)
	log := zap.L()

	// the debug wrapper does not expose CreateSchema
	store, err := openStore(ctx, log, runCfg.StoreURL, false)
	if err != nil {
		return errs.New("Error opening recording store: %+v", err)
	}
	defer func() { err = errs.Combine(err, store.Close()) }()

	creator, ok := store.(schemaCreator)
	if !ok {
		log.Info("store creates its tables on demand", zap.String("store", runCfg.StoreURL))
		return nil
	}
	return creator.CreateSchema(ctx, recordingdb.AllTables()...)
}

func cmdPurge(cmd *cobra.Command, args []string) (err error) {
	ctx, _ := process.Ctx(cmd)

	peer, err := openPeer(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errs.Combine(err, peer.Close()) }()

	return peer.PurgeDeletion.RunOnce(ctx)
}

func cmdPlacePurge(cmd *cobra.Command, args []string) (err error) {
	ctx, _ := process.Ctx(cmd)

	peer, err := openPeer(cmd)
	if err != nil {
		return err
	}
	defer func() { err = errs.Combine(err, peer.Close()) }()

	return peer.PlacePurge.RunOnce(ctx)
}

func init() {
	defaultConfDir := fpath.ApplicationDir("storj", "videostore")
	cfgstruct.SetupFlag(zap.L(), rootCmd, &confDir, "config-dir", defaultConfDir, "main directory for videostore configuration")
	defaults := cfgstruct.DefaultsFlag(rootCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(placePurgeCmd)
	process.Bind(runCmd, &runCfg, defaults, cfgstruct.ConfDir(confDir))
	process.Bind(schemaCmd, &runCfg, defaults, cfgstruct.ConfDir(confDir))
	process.Bind(purgeCmd, &runCfg, defaults, cfgstruct.ConfDir(confDir))
	process.Bind(placePurgeCmd, &runCfg, defaults, cfgstruct.ConfDir(confDir))
	process.Bind(setupCmd, &setupCfg, defaults, cfgstruct.ConfDir(confDir), cfgstruct.SetupMode())
}

func main() {
	logger, _, _ := process.NewLogger("videostore")
	zap.ReplaceGlobals(logger)

	process.Exec(rootCmd)
}
