package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/alessio/shellescape"

	"github.com/apiharness/api-contract-tests/framework"
)

// suiteCategories maps each -suite value to the top-level test groups it
// selects. "performance" and "all" additionally run the load scenarios, which
// live outside the group tree.
var suiteCategories = map[string][]string{
	"functional":  {"smoke", "users", "products", "orders"},
	"integration": {"integration"},
	"security":    {"security"},
	"performance": nil,
	"all":         nil,
}

type commandParams struct {
	configPath string
	envName    string
	serviceURL string
	suites     suiteList
	filters    framework.RegexFilters
	mockPort   int
	seed       int64
	allureDir  string
	debug      bool
	debugAll   bool
}

func (c *commandParams) Read(args []string) bool {
	fs := flag.NewFlagSet("", flag.ExitOnError)
	fs.StringVar(&c.configPath, "config", "", "path to a JSON or YAML configuration file")
	fs.StringVar(&c.envName, "env", "", "environment name from the configuration (default $ENVIRONMENT, then dev)")
	fs.StringVar(&c.serviceURL, "url", "", "base URL of the API under test (overrides the environment's URL)")
	fs.Var(&c.suites, "suite", "suite categories to run: functional, integration, security, performance, all (repeatable; default functional,integration,security)")
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	fs.IntVar(&c.mockPort, "port", 0, "port for the embedded mock service (default from the configuration)")
	fs.Int64Var(&c.seed, "seed", 0, "seed for generated test data (0 derives one from the clock)")
	fs.StringVar(&c.allureDir, "allure-dir", "", "write Allure result files to this directory")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging for failed tests")
	fs.BoolVar(&c.debugAll, "debug-all", false, "enable debug logging for all tests")

	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return false
	}
	if len(c.suites.names) == 0 {
		c.suites.names = []string{"functional", "integration", "security"}
	}
	return true
}

// groups returns the top-level test groups selected by the -suite flags.
func (c *commandParams) groups() map[string]bool {
	selected := map[string]bool{}
	for _, name := range c.suites.names {
		if name == "all" {
			for _, groups := range suiteCategories {
				for _, g := range groups {
					selected[g] = true
				}
			}
			continue
		}
		for _, g := range suiteCategories[name] {
			selected[g] = true
		}
	}
	return selected
}

func (c *commandParams) wantLoadTest() bool {
	for _, name := range c.suites.names {
		if name == "performance" || name == "all" {
			return true
		}
	}
	return false
}

// suiteList accepts a -suite flag repeated or given as comma-separated values.
type suiteList struct {
	names []string
}

func (s *suiteList) String() string {
	return strings.Join(s.names, ",")
}

func (s *suiteList) Set(value string) error {
	for _, name := range strings.Split(value, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := suiteCategories[name]; !ok {
			return fmt.Errorf("unknown suite %q (want functional, integration, security, performance, or all)", name)
		}
		s.names = append(s.names, name)
	}
	return nil
}

// invocation renders the command line so that a run can be reproduced by
// pasting a single line into a shell.
func invocation(args []string) string {
	return shellescape.QuoteCommand(args)
}
