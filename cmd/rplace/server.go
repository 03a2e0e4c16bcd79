package main

import (
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/JosticeMan/RPlace/internal/server"
)

func parsePort(s string) (uint16, error) {
	port, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid port %q", s)
	}
	return uint16(port), nil
}

func parseDim(s string) (int, error) {
	dim, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid dim %q", s)
	}
	if dim < 1 {
		return 0, errors.New("dim must be greater than or equal to 1")
	}
	return dim, nil
}

func serverArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(2)(cmd, args); err != nil {
		return err
	}
	if _, err := parsePort(args[0]); err != nil {
		return err
	}
	_, err := parseDim(args[1])
	return err
}

func runServer(cmd *cobra.Command, args []string) error {
	port, _ := parsePort(args[0])
	dim, _ := parseDim(args[1])

	cfgs := []server.Cfg{
		server.WithCooldown(env.Cooldown),
		server.WithAllowedOrigin(env.AllowedOrigin),
	}
	if env.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     env.RedisAddress,
			Password: env.RedisPassword,
			DB:       env.RedisDB,
		})
		defer rdb.Close()
		cfgs = append(cfgs, server.WithMirror(server.NewRedisMirror(rdb, env.RedisKey, dim)))
		logger.WithField("redis", env.RedisAddress).Info("mirroring board to redis")
	}

	s, err := server.New(dim, cfgs...)
	if err != nil {
		return errors.Wrap(err, "new server failed")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.ListenAndServe(ctx, net.JoinHostPort("", strconv.Itoa(int(port))))
}
