// Package webconsole runs a console program in a browser tab. Output is
// styled HTML, input is typed, and the process exits once the browser has
// seen the end of the program.
//
//	func main() {
//		webconsole.Run(func(c *console.Console) {
//			name := console.ReadString(c, "Name?")
//			c.Println("@(green, bold)Hello, " + name)
//		})
//	}
package webconsole

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/user/webconsole/console"
	"github.com/user/webconsole/internal/app"
	"github.com/user/webconsole/internal/config"
)

// Config controls the server address, drain policy, logging and transcript.
type Config = config.Config

// DefaultConfig returns the built-in settings: 127.0.0.1:8080, browser
// opened, unbounded input retries.
func DefaultConfig() Config {
	return config.Defaults()
}

// LoadConfig reads webconsole.yaml (or $WEBCONSOLE_CONFIG), WEBCONSOLE_*
// environment variables and the given command line flags, in that order.
func LoadConfig(args []string) (*Config, error) {
	return config.Load(args)
}

// Run loads the configuration from the process environment and arguments
// and serves program. It does not return.
func Run(program func(c *console.Console)) {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "webconsole: %v\n", err)
		os.Exit(2)
	}
	RunWithConfig(cfg, program)
}

// RunWithConfig serves program with cfg. It does not return: the process
// exits with status 0 once the drain policy is satisfied, 1 on startup
// failure, and 130 when interrupted.
func RunWithConfig(cfg *Config, program func(c *console.Console)) {
	os.Exit(Serve(cfg, program))
}

// Serve is RunWithConfig without the final os.Exit. It returns the exit
// status.
func Serve(cfg *Config, program func(c *console.Console)) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code, err := app.Run(ctx, cfg, program, app.Options{})
	switch {
	case errors.Is(err, context.Canceled):
		return 130
	case err != nil:
		fmt.Fprintf(os.Stderr, "webconsole: %v\n", err)
		return 1
	}
	return code
}
