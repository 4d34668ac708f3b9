// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag binds a command line flag to a global viper key
type Flag struct {
	globalName string
	cliName    string
	shorthand  string
}

// NewFlag returns a flag named cliName on the command line
// whose value is stored under globalName in viper
func NewFlag(globalName, cliName string) *Flag {
	return &Flag{
		globalName: globalName,
		cliName:    cliName,
	}
}

// Shorthand sets the one letter abbreviation of the flag
func (f *Flag) Shorthand(s string) *Flag {
	f.shorthand = s
	return f
}

func (f *Flag) bind(cmd *cobra.Command) {
	cobra.CheckErr(viper.BindPFlag(f.globalName, cmd.Flags().Lookup(f.cliName)))
}

type StringFlag struct{ *Flag }

func (f *Flag) String() *StringFlag { return &StringFlag{f} }

// Bind registers the flag on the command and binds it to viper
func (f *StringFlag) Bind(cmd *cobra.Command, value, usage string) {
	cmd.Flags().StringP(f.cliName, f.shorthand, value, usage)
	f.bind(cmd)
}

type IntFlag struct{ *Flag }

func (f *Flag) Int() *IntFlag { return &IntFlag{f} }

// Bind registers the flag on the command and binds it to viper
func (f *IntFlag) Bind(cmd *cobra.Command, value int, usage string) {
	cmd.Flags().IntP(f.cliName, f.shorthand, value, usage)
	f.bind(cmd)
}

type Float64Flag struct{ *Flag }

func (f *Flag) Float64() *Float64Flag { return &Float64Flag{f} }

// Bind registers the flag on the command and binds it to viper
func (f *Float64Flag) Bind(cmd *cobra.Command, value float64, usage string) {
	cmd.Flags().Float64P(f.cliName, f.shorthand, value, usage)
	f.bind(cmd)
}

type BoolFlag struct{ *Flag }

func (f *Flag) Bool() *BoolFlag { return &BoolFlag{f} }

// Bind registers the flag on the command and binds it to viper
func (f *BoolFlag) Bind(cmd *cobra.Command, value bool, usage string) {
	cmd.Flags().BoolP(f.cliName, f.shorthand, value, usage)
	f.bind(cmd)
}

type DurationFlag struct{ *Flag }

func (f *Flag) Duration() *DurationFlag { return &DurationFlag{f} }

// Bind registers the flag on the command and binds it to viper
func (f *DurationFlag) Bind(cmd *cobra.Command, value time.Duration, usage string) {
	cmd.Flags().DurationP(f.cliName, f.shorthand, value, usage)
	f.bind(cmd)
}
