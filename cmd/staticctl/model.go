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

package main

import (
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
)

// pollTickMsg drives the poll loop: every interval the model re-fetches
// /stats and schedules the next tick.
type pollTickMsg struct{}

// pollResultMsg carries either a fresh snapshot or the error from a failed
// poll.
type pollResultMsg struct {
	snap snapshot
	err  error
	at   time.Time
}

// model is the bubbletea.Model for the dashboard: it has no access to
// server internals, only ever the JSON body fetched from /stats.
type model struct {
	addr     string
	interval time.Duration
	client   *http.Client

	have     bool
	current  snapshot
	previous snapshot
	lastPoll time.Time
	lastErr  error
	quitting bool
}

func newModel(addr string, interval time.Duration) *model {
	return &model{
		addr:     addr,
		interval: interval,
		client:   &http.Client{Timeout: interval},
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.pollCmd(), tickAfter(m.interval))
}

func (m *model) pollCmd() tea.Cmd {
	return func() tea.Msg {
		snap, err := fetchSnapshot(m.client, m.addr)
		return pollResultMsg{snap: snap, err: err, at: time.Now()}
	}
}

func tickAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return pollTickMsg{} })
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		}
		if msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case pollTickMsg:
		return m, tea.Batch(m.pollCmd(), tickAfter(m.interval))

	case pollResultMsg:
		m.lastPoll = msg.at
		if msg.err != nil {
			m.lastErr = msg.err
			return m, nil
		}
		m.lastErr = nil
		if m.have {
			m.previous = m.current
		} else {
			m.previous = msg.snap
			m.have = true
		}
		m.current = msg.snap
		return m, nil
	}

	return m, nil
}

func (m *model) View() string {
	if m.quitting {
		return ""
	}

	title := color.New(color.FgCyan, color.Bold).Sprintf("staticd dashboard — %s", m.addr)

	if !m.have {
		if m.lastErr != nil {
			return fmt.Sprintf("%s\n\nwaiting for first poll... last error: %v\n", title, m.lastErr)
		}
		return fmt.Sprintf("%s\n\nwaiting for first poll...\n", title)
	}

	d := deltaBetween(m.previous, m.current)
	up := m.current.uptime(time.Now())

	good := color.New(color.FgGreen).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()

	errLine := ""
	if m.lastErr != nil {
		errLine = warn(fmt.Sprintf("last poll error: %v\n", m.lastErr))
	}

	return fmt.Sprintf(`%s

uptime:             %s
active connections: %s
total requests:     %d  (%s since last poll)
bytes transferred:  %d  (%s since last poll)

status 200: %s   status 206: %s   status 404: %s   status 416: %s
status 400: %s   status 403: %s   status 501: %s
status 500: %s   status 503: %s

%slast polled: %s   (press q to quit)
`,
		title,
		up,
		good(fmt.Sprint(m.current.ActiveConnections)),
		m.current.CompletedRequests, good(fmt.Sprint(d.Requests)),
		m.current.BytesTransferred, good(fmt.Sprint(d.Bytes)),
		good(fmt.Sprint(m.current.Status200)), good(fmt.Sprint(m.current.Status206)),
		warn(fmt.Sprint(m.current.Status404)), warn(fmt.Sprint(m.current.Status416)),
		bad(fmt.Sprint(m.current.Status400)), bad(fmt.Sprint(m.current.Status403)), bad(fmt.Sprint(m.current.Status501)),
		bad(fmt.Sprint(m.current.Status500)), bad(fmt.Sprint(m.current.Status503)),
		errLine, m.lastPoll.Format("15:04:05"),
	)
}
