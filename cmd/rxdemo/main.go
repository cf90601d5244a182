// Command rxdemo exercises every rxkit stream component against the
// configured buffer and retry settings and logs what each one delivered.
//
// Configuration is read from cmd/rxdemo/config.yml (or ./config.yml) and
// RXDEMO_* environment variables, e.g. RXDEMO_STREAM_POLICY=reject.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kbukum/rxkit/bootstrap"
	"github.com/kbukum/rxkit/config"
)

const serviceName = "rxdemo"

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(serviceName, config.WithEnvPrefix(serviceName))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	return app.RunTask(ctx, func(ctx context.Context) error {
		return newDemo(cfg, app.Logger, app.Metrics).run(ctx, app)
	})
}
