/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
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

// Command staticd is the CLI front door of spec §4.P: it loads a config
// file, wires the supervisor, starts listening, and blocks on
// WaitNotify until SIGINT/SIGTERM/SIGQUIT.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nabbar/staticd/config"
	"github.com/nabbar/staticd/internal/logx"
	"github.com/nabbar/staticd/internal/statsview"
	"github.com/nabbar/staticd/server"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "staticd",
		Short: "Concurrent static-content HTTP/1.x origin server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}

	viper.SetEnvPrefix("STATICD")
	_ = viper.BindEnv("config")
	envPath := viper.GetString("config")

	cmd.Flags().StringVar(&configPath, "config", envPath, "path to the server configuration file")
	if envPath == "" {
		_ = cmd.MarkFlagRequired("config")
	}

	return cmd
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, statsview.FormatJSON, statsview.Dashboard)
	if err != nil {
		return err
	}

	if err := srv.Listen(context.Background(), fmt.Sprintf(":%d", cfg.Port)); err != nil {
		return err
	}

	stop, err := config.WatchDrift(cfg.SourcePath)
	if err != nil {
		logx.Warnf("config watch disabled: %v", err)
	} else {
		defer stop()
	}

	return srv.WaitNotify(context.Background())
}
