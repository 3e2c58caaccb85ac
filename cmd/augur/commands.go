package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/riftaugur/augur-cli/internal/api"
	"github.com/riftaugur/augur-cli/internal/display"
)

// ── queue commands ──

func queueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect or join the matchmaking queue",
	}

	join := &cobra.Command{
		Use:   "join <player_id>",
		Short: "Add a player to the queue",
		Args:  cobra.ExactArgs(1),
		RunE:  runQueueJoin,
	}
	join.Flags().Int("mmr", api.DefaultMMR, "player rating (server default when omitted)")

	cmd.AddCommand(join, &cobra.Command{
		Use:   "list",
		Short: "List waiting players",
		Args:  cobra.NoArgs,
		RunE:  runQueueList,
	})
	return cmd
}

func runQueueJoin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	req := api.JoinRequest{PlayerID: args[0]}
	if cmd.Flags().Changed("mmr") {
		mmr, _ := cmd.Flags().GetInt("mmr")
		if mmr < 0 {
			return fmt.Errorf("mmr must not be negative")
		}
		req.MMR = &mmr
	}

	ctx, cancel := requestContext(cfg)
	defer cancel()
	if err := newClient(cfg).JoinQueue(ctx, req); err != nil {
		return err
	}
	fmt.Printf("%s joined the queue.\n", req.PlayerID)
	return nil
}

func runQueueList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(cfg)
	defer cancel()
	entries, err := newClient(cfg).QueuePlayers(ctx)
	if err != nil {
		return err
	}
	display.QueueTable(os.Stdout, entries)
	return nil
}

// ── matches command ──

func matchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matches",
		Short: "Completed matches",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "recent",
		Short: "List recently completed matches",
		Args:  cobra.NoArgs,
		RunE:  runMatchesRecent,
	})
	return cmd
}

func runMatchesRecent(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(cfg)
	defer cancel()
	matches, err := newClient(cfg).RecentMatches(ctx)
	if err != nil {
		return err
	}
	display.RecentTable(os.Stdout, matches)
	return nil
}

// ── report command ──

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <match_id>",
		Short: "Report a match result without the dashboard",
		Args:  cobra.ExactArgs(1),
		RunE:  runReport,
	}
	cmd.Flags().StringSlice("winner", nil, "winning team player ids (comma separated)")
	cmd.Flags().StringSlice("loser", nil, "losing team player ids (comma separated)")
	_ = cmd.MarkFlagRequired("winner")
	_ = cmd.MarkFlagRequired("loser")
	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	winners, _ := cmd.Flags().GetStringSlice("winner")
	losers, _ := cmd.Flags().GetStringSlice("loser")
	if len(winners) == 0 || len(losers) == 0 {
		return fmt.Errorf("both --winner and --loser need at least one player")
	}

	ctx, cancel := requestContext(cfg)
	defer cancel()
	res := api.MatchResult{WinnerTeam: winners, LoserTeam: losers}
	if err := newClient(cfg).ReportResult(ctx, args[0], res); err != nil {
		return err
	}
	fmt.Printf("Result for match %s recorded.\n", args[0])
	return nil
}

// ── player commands ──

func playerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "player",
		Short: "Manage player profiles",
	}

	add := &cobra.Command{
		Use:   "add <player_id>",
		Short: "Create a player profile",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlayerSave(false),
	}
	add.Flags().String("rank", "", `rank such as "Gold II"`)
	_ = add.MarkFlagRequired("rank")

	update := &cobra.Command{
		Use:   "update <player_id>",
		Short: "Change a player's rank",
		Args:  cobra.ExactArgs(1),
		RunE:  runPlayerSave(true),
	}
	update.Flags().String("rank", "", `rank such as "Gold II"`)
	_ = update.MarkFlagRequired("rank")

	cmd.AddCommand(add, update,
		&cobra.Command{
			Use:   "stats <player_id>",
			Short: "Show a player's rating and record",
			Args:  cobra.ExactArgs(1),
			RunE:  runPlayerStats,
		},
		&cobra.Command{
			Use:   "search [prefix]",
			Short: "Find players by id prefix",
			Args:  cobra.MaximumNArgs(1),
			RunE:  runPlayerSearch,
		},
	)
	return cmd
}

func runPlayerSave(update bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rankFlag, _ := cmd.Flags().GetString("rank")
		rank, err := api.NormalizeRank(rankFlag)
		if err != nil {
			return err
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := requestContext(cfg)
		defer cancel()
		client := newClient(cfg)
		req := api.PlayerRequest{PlayerID: args[0], Rank: rank}

		var status string
		if update {
			status, err = client.UpdatePlayer(ctx, req)
		} else {
			status, err = client.AddPlayer(ctx, req)
		}
		var apiErr *api.APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.IsConflict():
			return fmt.Errorf("player %s already exists (use 'augur player update')", args[0])
		case errors.As(err, &apiErr) && apiErr.IsNotFound():
			return fmt.Errorf("player %s not found (use 'augur player add')", args[0])
		case err != nil:
			return err
		}
		if status == "" {
			status = "ok"
		}
		fmt.Printf("%s: %s (%s)\n", args[0], rank, status)
		return nil
	}
}

func runPlayerStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(cfg)
	defer cancel()
	p, err := newClient(cfg).PlayerStats(ctx, args[0])
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.IsNotFound() {
		return fmt.Errorf("player %s not found", args[0])
	}
	if err != nil {
		return err
	}
	display.PlayerCard(os.Stdout, p)
	return nil
}

func runPlayerSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	prefix := ""
	if len(args) == 1 {
		prefix = args[0]
	}
	ctx, cancel := requestContext(cfg)
	defer cancel()
	players, err := newClient(cfg).Players(ctx, prefix)
	if err != nil {
		return err
	}
	display.PlayerTable(os.Stdout, players)
	return nil
}

// ── predict command ──

func predictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Estimate win probabilities for two teams",
		Args:  cobra.NoArgs,
		RunE:  runPredict,
	}
	cmd.Flags().StringSlice("team-a", nil, "team A player ids (comma separated)")
	cmd.Flags().StringSlice("team-b", nil, "team B player ids (comma separated)")
	_ = cmd.MarkFlagRequired("team-a")
	_ = cmd.MarkFlagRequired("team-b")
	return cmd
}

func runPredict(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	teamA, _ := cmd.Flags().GetStringSlice("team-a")
	teamB, _ := cmd.Flags().GetStringSlice("team-b")

	ctx, cancel := requestContext(cfg)
	defer cancel()
	pred, err := newClient(cfg).Predict(ctx, api.PredictRequest{TeamA: teamA, TeamB: teamB})
	if err != nil {
		return err
	}
	display.DisplayPrediction(os.Stdout, pred)
	return nil
}
