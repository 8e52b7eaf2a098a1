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

// Command staticctl is the dashboard consumer of spec §4.Q: it polls a
// running staticd's /stats JSON endpoint on an interval and renders
// counters, deltas, and uptime in a bubbletea TUI. It never touches server
// internals — only the same JSON body an operator's browser would fetch.
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var addr string
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "staticctl",
		Short: "Terminal dashboard for a running staticd server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(addr, interval)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "host:port of the running staticd server")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "polling interval")
	_ = cmd.MarkFlagRequired("addr")

	return cmd
}

func run(addr string, interval time.Duration) error {
	p := tea.NewProgram(newModel(addr, interval))
	_, err := p.Run()
	return err
}
