package main

import (
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"gtgate.dev/gtgate/flags"
	"gtgate.dev/gtgate/gateway"
)

func main() {
	f, err := flags.ParseServerArgs(os.Args)
	if err != nil {
		logrus.Error(err)
		return
	}
	sc, err := flags.LoadServerConfigFromFlags(f)
	if err != nil {
		logrus.Fatalf("error loading config: %s", err)
	}
	level, err := logrus.ParseLevel(sc.LogLevel)
	if err != nil {
		logrus.Fatalf("invalid log level %q: %s", sc.LogLevel, err)
	}
	logrus.SetLevel(level)

	s := gateway.New(sc.Workers)
	sock, err := net.Listen("tcp", sc.ListenAddress)
	if err != nil {
		logrus.Fatalf("unable to open tcp socket %s: %s", sc.ListenAddress, err)
	}
	logrus.Infof("listening on %s", sock.Addr().String())
	logrus.Info("GET  /health - health check")
	logrus.Info("POST /click/* - click operations")
	logrus.Info("POST /slide/* - slide operations")
	logrus.Info("all POST endpoints accept optional 'proxy' and 'session_id' fields")

	sch := make(chan os.Signal, 1)
	signal.Notify(sch, os.Interrupt, syscall.SIGTERM)
	go func() {
		if err := http.Serve(sock, s); err != nil {
			logrus.Error(err)
		}
		sch <- syscall.SIGTERM
	}()
	<-sch
	s.Close()
}
