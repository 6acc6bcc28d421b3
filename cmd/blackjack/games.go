package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/lox/blackjack/internal/client"
	"github.com/lox/blackjack/internal/tui"
)

// GamesCmd prints the games running on a server
type GamesCmd struct {
	Server  string        `short:"s" default:"http://localhost:8080" help:"Server URL"`
	JSON    bool          `help:"Print raw JSON"`
	Timeout time.Duration `default:"5s" help:"Request timeout"`
	NoColor bool          `help:"Disable colour output"`
}

func (c *GamesCmd) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	games, err := client.FetchGames(ctx, c.Server)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(games)
	}

	if len(games) == 0 {
		fmt.Println("No games running")
		return nil
	}
	tui.SetColor(!c.NoColor)
	fmt.Println(tui.RenderGameList(games))
	return nil
}
