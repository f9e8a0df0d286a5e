// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

// Package cmdlog renders interactive instrument traffic on the console.
// It exists for poking at a new instrument from the CLI: commands are
// colored, responses shown with their length, and binary responses hex
// dumped instead of garbling the terminal.
package cmdlog

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

// Bus is the command/query surface cmdlog wraps. *scpi.Client
// implements it.
type Bus interface {
	Command(format string, a ...any) error
	Query(cmd string) (string, error)
}

var (
	cmdStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	respStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
)

func printable(s string) bool {
	return !strings.ContainsFunc(s, func(r rune) bool {
		return (r < 32 && r != '\t') || r > 127
	})
}

// Command sends c and logs it, styled, with any error.
func Command(bus Bus, c string) error {
	err := bus.Command("%s", c)
	if err != nil {
		logrus.WithError(err).Errorf("%s failed", cmdStyle.Render(c))
		return err
	}
	fmt.Println(cmdStyle.Render(c))
	return nil
}

// Query sends q and prints the response. ASCII responses print quoted
// with their length; anything else is hex dumped.
func Query(bus Bus, q string) (string, error) {
	resp, err := bus.Query(q)
	if err != nil {
		logrus.WithError(err).Errorf("%s failed", cmdStyle.Render(q))
		return "", err
	}
	styled := cmdStyle.Render(q)
	switch {
	case resp == "":
		fmt.Printf("%s: %s\n", styled, respStyle.Render("<no response>"))
	case printable(resp):
		fmt.Printf("%s: [%d] %s\n", styled, len(resp), respStyle.Render(fmt.Sprintf("%q", resp)))
	case len(resp) < 32:
		fmt.Printf("%s: [%d] %q (% 2x)\n", styled, len(resp), resp, []byte(resp))
	default:
		fmt.Printf("%s: [%d] % 2x\n", styled, len(resp), []byte(resp))
	}
	return resp, nil
}
