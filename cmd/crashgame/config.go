package main

import (
	"fmt"

	"github.com/lox/crashgame/internal/fileutil"
	"github.com/lox/crashgame/internal/server"
)

// ConfigCmd writes a config file holding the defaults, ready for editing
type ConfigCmd struct {
	Path  string `kong:"arg,optional,default='crashgame.hcl',help='File to write (.hcl, .yaml or .yml)'"`
	Force bool   `kong:"help='Overwrite an existing file'"`
}

func (c *ConfigCmd) Run() error {
	data, err := server.EncodeConfig(server.DefaultConfig(), c.Path)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(c.Path, data, 0o644, c.Force); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", c.Path)
	return nil
}
