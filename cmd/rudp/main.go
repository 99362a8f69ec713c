package main

import (
	"fmt"
	"os"
	"os/signal"

	log "github.com/sirupsen/logrus"

	"github.com/Pablu23/Rudp/internal/client"
	"github.com/Pablu23/Rudp/internal/common"
	"github.com/Pablu23/Rudp/internal/config"
	"github.com/Pablu23/Rudp/internal/server"
	"github.com/Pablu23/Rudp/internal/stream"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <receiver|sender|tcp-receiver|tcp-sender> <config file>\n", os.Args[0])
	os.Exit(1)
}

func handleShutdown() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		for range c {
			log.Info("Shutting down")
			os.Exit(0)
		}
	}()
}

func main() {
	if len(os.Args) != 3 {
		usage()
	}

	conf, err := config.Load(os.Args[2])
	if err != nil {
		log.WithError(err).WithField("File", os.Args[2]).Fatal("Failed to load configuration")
	}
	conf.Logging.SetupLogging()

	handleShutdown()

	switch os.Args[1] {
	case "receiver":
		srv, err := server.New(server.WithConfig(conf))
		if err != nil {
			log.WithError(err).Fatal("Failed to create receiver")
		}
		if _, err := srv.Serve(); err != nil {
			log.WithError(err).Fatal("Receiver failed")
		}

	case "sender":
		if _, err := client.SendFile(client.WithConfig(conf)); err != nil {
			log.WithError(err).Fatal("Sender failed")
		}

	case "tcp-receiver":
		r, err := stream.Listen(conf.Stream.Port, conf.Stream.Congestion)
		if err != nil {
			log.WithError(err).Fatal("Failed to create TCP receiver")
		}
		defer r.Close()

		if _, err := r.Serve(); err != nil {
			log.WithError(err).Fatal("TCP receiver failed")
		}

	case "tcp-sender":
		data, err := client.RandomPayload(conf.Protocol.TransferSize)
		if err != nil {
			log.WithError(err).Fatal("Failed to generate payload")
		}

		sender := stream.NewSender(conf.Stream.Address, conf.Stream.Port, conf.Stream.Congestion)
		if _, err := sender.Run(data, common.NewRepeater(conf.Sender.Runs, os.Stdin, os.Stdout)); err != nil {
			log.WithError(err).Fatal("TCP sender failed")
		}

	default:
		usage()
	}
}
