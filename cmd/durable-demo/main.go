// Command durable-demo hosts a single echo handler with two durable steps
// over a TCP listener, driven by the invocation core. It exists to give
// the transport and manifest packages something real to serve, not as a
// production supervisor.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/flowcraft/durable/facade"
	"github.com/flowcraft/durable/internal/metrics"
	"github.com/flowcraft/durable/internal/ops"
	"github.com/flowcraft/durable/invocation"
	"github.com/flowcraft/durable/manifest"
	"github.com/flowcraft/durable/sideeffect"
	"github.com/flowcraft/durable/transport"
)

type options struct {
	Addr string `short:"a" long:"addr" description:"address to listen on" default:"127.0.0.1:9080"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	var logger = logrus.New()
	var publisher = &ops.LogrusPublisher{Logger: logger, Min: ops.LevelInfo}

	var m = manifest.Render([]manifest.ServiceDefinition{
		{
			Name: "DemoService",
			Type: manifest.ServiceService,
			Handlers: []manifest.HandlerDefinition{
				{
					Name:   "Echo",
					Input:  manifest.ContentSpec{ContentType: "application/json"},
					Output: manifest.ContentSpec{ContentType: "application/json"},
				},
			},
		},
	})
	raw, err := m.JSON()
	if err != nil {
		logger.Fatalf("rendering manifest: %v", err)
	}
	color.Cyan("manifest: %s", raw)

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		logger.Fatalf("listen %s: %v", opts.Addr, err)
	}
	color.Green("durable-demo listening on %s", opts.Addr)

	var reg = metrics.New(nil)
	var server = transport.NewServer(ln, reg, publisher, echoHandler)

	var ctx, cancel = context.WithCancel(context.Background())
	defer cancel()

	var sig = make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		color.Yellow("shutting down")
		cancel()
	}()

	if err := server.Serve(ctx); err != nil {
		logger.Errorf("serve: %v", err)
	}
}

func echoHandler(ctx context.Context, m *invocation.Machine, in invocation.HandlerInput) ([]byte, error) {
	var c = facade.New(ctx, m)

	// Two independent steps kicked off concurrently via RunAsync, then
	// joined with All so neither one's completion order affects the
	// output: a small, real exercise of the async-step/combinator pair
	// rather than the single blocking Run most handlers reach for.
	upper, err := facade.RunAsync(c, "uppercase-step", sideeffect.DefaultRetryPolicy, func(context.Context) (string, error) {
		return strings.ToUpper(string(in.Content)), nil
	})
	if err != nil {
		return nil, err
	}
	length, err := facade.RunAsync(c, "length-step", sideeffect.DefaultRetryPolicy, func(context.Context) (int, error) {
		return len(in.Content), nil
	})
	if err != nil {
		return nil, err
	}

	if err := facade.All([]*facade.Future{upper.Future(), length.Future()}); err != nil {
		return nil, err
	}

	upperVal, err := upper.Await()
	if err != nil {
		return nil, err
	}
	lengthVal, err := length.Await()
	if err != nil {
		return nil, err
	}

	return []byte(fmt.Sprintf("echo:%s (%d bytes, upper=%s)", in.Content, lengthVal, upperVal)), nil
}
