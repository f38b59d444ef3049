// Command device-auth-check asks the hub whether a device UID would be
// accepted, the same call a device makes when it powers on.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/config"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/devices"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/deviceuid"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/hubclient"
)

func main() {
	var uid string
	flag.StringVar(&uid, "uid", "", "device UID, 24 hex characters; spaces and hyphens are ignored")
	flag.Parse()
	if uid == "" && flag.NArg() > 0 {
		uid = flag.Arg(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadClient()
	client := devices.NewClient(hubclient.New(cfg))
	os.Exit(run(ctx, client, uid, os.Stdout))
}

func run(ctx context.Context, client *devices.Client, uid string, out io.Writer) int {
	if uid == "" {
		fmt.Fprintln(out, "Please enter a UID to test.")
		return 2
	}
	result, err := client.Authenticate(ctx, uid)
	if err != nil {
		fmt.Fprintln(out, devices.Message(err))
		return 2
	}
	if !result.Valid {
		message := result.Message
		if message == "" {
			message = "Device authentication failed."
		}
		fmt.Fprintf(out, "FAILED %s: %s\n", deviceuid.Format(deviceuid.Normalize(uid)), message)
		return 1
	}
	name := "Unknown"
	if result.DeviceName != nil {
		name = *result.DeviceName
	}
	fmt.Fprintf(out, "OK device %s (%s) authenticated successfully.\n", name, result.DeviceID)
	return 0
}
