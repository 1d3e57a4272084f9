package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/alejzeis/chess-matchmaker/common"
	"github.com/alejzeis/chess-matchmaker/config"

	log "github.com/sirupsen/logrus"
)

const usage = `Commands:
  find <playerId> [mode] [timeControl]   wait for an opponent
  info                                   show server queues
  quit`

// RunClient is the main method for running the client code
func RunClient(cfg config.ClientConfig) {
	rest := createRestClient(cfg.ServerURL)
	log.WithField("server", cfg.ServerURL).Info("Client ready for commands.")
	fmt.Println(usage)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "find":
			req, err := parseFindCommand(fields[1:])
			if err != nil {
				log.WithError(err).Error("Usage: \"find [playerId] [mode] [timeControl]\"")
				continue
			}
			runFind(cfg, rest, req)
		case "info":
			info, err := rest.info(context.Background())
			if err != nil {
				log.WithError(err).Error("Failed to get server info")
				continue
			}
			log.WithFields(log.Fields{
				"software":    info.Software,
				"version":     info.Version,
				"queues":      info.Queues,
				"liveMatches": info.LiveMatches,
			}).Info("Server info")
		case "quit", "exit":
			return
		default:
			fmt.Println(usage)
		}
	}
}

// runFind waits for a match until one is found or the user presses Ctrl+C
func runFind(cfg config.ClientConfig, rest *restClient, req common.FindRequest) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	hints, err := listenForMatches(ctx, cfg.ServerURL, *req.PlayerID)
	if err != nil {
		log.WithError(err).Warn("Match notifications unavailable, polling only")
	}

	log.WithFields(log.Fields{
		"player":      *req.PlayerID,
		"mode":        req.Mode,
		"timeControl": req.TimeControl,
	}).Info("Looking for an opponent, press Ctrl+C to stop")

	resp, err := waitForMatch(ctx, rest, req, cfg.PollInterval, cfg.ErrorBackoff, hints)
	if errors.Is(err, context.Canceled) {
		log.Info("Stopped looking for an opponent")
		return
	} else if err != nil {
		log.WithError(err).Error("Matchmaking failed")
		return
	}

	log.WithFields(log.Fields{
		"gameId": *resp.GameID,
		"white":  *resp.WhitePlayerID,
		"black":  *resp.BlackPlayerID,
	}).Info("Matched")
}

func parseFindCommand(args []string) (common.FindRequest, error) {
	if len(args) == 0 || len(args) > 3 {
		return common.FindRequest{}, errors.New("expected a player id and optional mode and time control")
	}

	player, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return common.FindRequest{}, fmt.Errorf("player id %q: %w", args[0], err)
	}

	req := common.FindRequest{PlayerID: &player}
	if len(args) > 1 {
		req.Mode = args[1]
	}
	if len(args) > 2 {
		req.TimeControl = args[2]
	}
	return req, nil
}
