/*
 * segcored - Boot a machine image and run it to halt or signal.
 *
 * Copyright 2026, The segcore Authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Command segcored boots a machine image from a config file and runs
// it to halt or signal.
//
// Config file flag, logger built at startup, SIGINT/SIGTERM shutdown
// via Machine.Halt(): a cobra (+ pflag transitively) entrypoint
// in place of a getopt-style flag parser.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/segcore/segcore/internal/config"
	"github.com/segcore/segcore/internal/logging"
	"github.com/segcore/segcore/internal/metrics"

	_ "github.com/segcore/segcore/internal/portbus"
	_ "github.com/segcore/segcore/internal/storage"
)

// version is stamped by the release process; left as a plain default
// for local builds.
var version = "dev"

var (
	flagConfig      string
	flagLogLevel    string
	flagMetricsAddr string
)

func main() {
	root := &cobra.Command{
		Use:   "segcored",
		Short: "segcored runs the segmented-machine execution core",
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "segcore.yaml", "machine configuration file")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override the config file's log level")
	root.PersistentFlags().StringVar(&flagMetricsAddr, "metrics-addr", "", "override the config file's metrics bind address")

	root.AddCommand(bootCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the segcored version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	}
}

func bootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "boot",
		Short: "load a machine image and run it to halt or signal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoot()
		},
	}
}

func runBoot() error {
	fs := afero.NewOsFs()

	spec, err := config.Load(fs, flagConfig)
	if err != nil {
		return err
	}

	level := spec.LogLevel
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	log, err := logging.New(level)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	met := metrics.New()
	metricsAddr := spec.MetricsAddr
	if flagMetricsAddr != "" {
		metricsAddr = flagMetricsAddr
	}
	if metricsAddr != "" {
		go serveMetrics(metricsAddr, met, log)
	}

	m, states, err := buildMachine(spec, fs, log, met)
	if err != nil {
		return err
	}

	if err := m.Boot(states); err != nil {
		return fmt.Errorf("segcored: boot: %w", err)
	}
	log.Infow("machine running", "config", flagConfig)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		m.Wait()
		close(done)
	}()

	select {
	case <-sigChan:
		log.Info("received shutdown signal")
	case <-done:
		log.Info("machine halted on its own")
		return nil
	}

	if err := m.Halt(); err != nil {
		return fmt.Errorf("segcored: halt: %w", err)
	}
	return nil
}
