/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package cmd wires nexer's command-line entry point: load the
// configuration, stand up the orchestrator, and run until signalled.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nexer-proxy/nexer/console"
	liblog "github.com/nexer-proxy/nexer/logger"

	"github.com/nexer-proxy/nexer/config"
	"github.com/nexer-proxy/nexer/internal/orchestrator"
)

var cfgFile string

// Execute runs the root command, returning the process exit code.
func Execute() int {
	root := &cobra.Command{
		Use:           "nexer",
		Short:         "On-demand TCP reverse proxy with process supervision",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runRoot,
	}

	home, _ := os.UserHomeDir()
	root.PersistentFlags().StringVar(&cfgFile, "config", filepath.Join(home, ".nexer", "nexer.conf"), "path to the nexer configuration file")

	if err := root.Execute(); err != nil {
		return 1
	}
	return exitCode
}

var exitCode = 0

func runRoot(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, err := config.Load(ctx, cfgFile)
	if err != nil {
		exitCode = 1
		return err
	}

	lg, err := config.NewLogger(ctx, root.Logger)
	if err != nil {
		exitCode = 1
		return err
	}
	defer func() { _ = lg.Close() }()

	logFn := func() liblog.Logger { return lg }
	orch := orchestrator.New(root, logFn)

	console.ColorPrint.PrintfLn("nexer starting, config=%s", cfgFile)

	return orch.Run(ctx)
}
