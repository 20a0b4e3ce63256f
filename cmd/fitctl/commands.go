package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/fittrack/internal/client"
	"github.com/2beens/fittrack/internal/fitness"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:               "fitctl",
		Short:             "Track workouts and nutrition from the terminal",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	rootCmd.PersistentFlags().StringVar(&a.server, "server", envOr("FITTRACK_SERVER", defaultServer), "fittrack server url")
	rootCmd.PersistentFlags().StringVar(&a.sessionPath, "session", defaultSessionPath(), "file holding the login session")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level [trace | debug | info | warn | error]")

	rootCmd.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newTodayCmd(a),
		newLogSetCmd(a),
		newDeleteSetCmd(a),
		newFoodCmd(a),
		newNutritionCmd(a),
		newSettingsCmd(a),
		newCalendarCmd(a),
		newStatsCmd(a),
		newRoutineCmd(a),
	)
	return rootCmd
}

func newLoginCmd(a *app) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password := os.Getenv("FITTRACK_PASSWORD")
			if password == "" {
				fmt.Fprint(cmd.OutOrStdout(), "password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			if err := a.api.Login(cmd.Context(), username, password); err != nil {
				if errors.Is(err, client.ErrUnauthorized) {
					return errors.New("invalid credentials")
				}
				return err
			}
			if err := a.api.SaveSession(a.sessionPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("logged in as "+username))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "admin", "username")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := a.api.Logout(cmd.Context())
			if err != nil && !errors.Is(err, client.ErrUnauthorized) {
				return err
			}
			if err := client.ClearSession(a.sessionPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("logged out"))
			return nil
		},
	}
}

func newTodayCmd(a *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "today",
		Short: "Show the day: routine, logged sets and nutrition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snapshot, err := a.api.Snapshot(cmd.Context())
			if err != nil {
				return explain(err)
			}
			day, err := fitness.ParseDate(date)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderDay(snapshot, day, time.Now()))
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", today(), "day to show, YYYY-MM-DD")
	return cmd
}

func newLogSetCmd(a *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "log-set <exercise> <reps> [weight]",
		Short: "Log one set of an exercise",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			reps, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid reps %q", args[1])
			}
			weight := 0.0
			if len(args) == 3 {
				if weight, err = strconv.ParseFloat(args[2], 64); err != nil {
					return fmt.Errorf("invalid weight %q", args[2])
				}
			}

			return a.withState(cmd.Context(), func(st *client.State) error {
				set, err := st.LogSet(date, args[0], reps, weight)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("logged %s", formatSet(set))))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", today(), "day of the set, YYYY-MM-DD")
	return cmd
}

func newDeleteSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-set <id>",
		Short: "Delete a logged set by its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid set id %q", args[0])
			}
			return a.withState(cmd.Context(), func(st *client.State) error {
				if err := st.DeleteSet(id); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("deleted set %d", id)))
				return nil
			})
		},
	}
}

func newFoodCmd(a *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "food <text...>",
		Short: "Replace the day's food log",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			foodLog := strings.Join(args, " ")
			return a.withState(cmd.Context(), func(st *client.State) error {
				return st.SetFoodLog(date, foodLog)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", today(), "day of the food log, YYYY-MM-DD")
	return cmd
}

func newNutritionCmd(a *app) *cobra.Command {
	var (
		date              string
		calories, protein int
	)
	cmd := &cobra.Command{
		Use:   "nutrition",
		Short: "Add calories and protein to the day's totals (negative values subtract)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withState(cmd.Context(), func(st *client.State) error {
				if err := st.AddNutrition(date, calories, protein); err != nil {
					return err
				}
				if l, ok := st.Snapshot().FindLog(date); ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d kcal, %dg protein\n", date, l.Calories, l.Protein)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", today(), "day, YYYY-MM-DD")
	cmd.Flags().IntVarP(&calories, "calories", "c", 0, "calories to add")
	cmd.Flags().IntVarP(&protein, "protein", "p", 0, "protein grams to add")
	return cmd
}

func newSettingsCmd(a *app) *cobra.Command {
	var (
		name, startDate   string
		weight            float64
		calories, protein int
	)
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the profile and targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var patch fitness.UserPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("weight") {
				patch.Weight = &weight
			}
			if flags.Changed("calories") {
				patch.CalorieTarget = &calories
			}
			if flags.Changed("protein") {
				patch.ProteinTarget = &protein
			}
			if flags.Changed("start-date") {
				if _, err := fitness.ParseDate(startDate); err != nil {
					return err
				}
				patch.StartDate = &startDate
			}

			return a.withState(cmd.Context(), func(st *client.State) error {
				if err := st.UpdateUser(patch); err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), renderUser(st.Snapshot().User))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().Float64Var(&weight, "weight", 0, "body weight in kg")
	cmd.Flags().IntVar(&calories, "calories", 0, "daily calorie target")
	cmd.Flags().IntVar(&protein, "protein", 0, "daily protein target in grams")
	cmd.Flags().StringVar(&startDate, "start-date", "", "journey start date, YYYY-MM-DD")
	return cmd
}

func newCalendarCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "calendar [year month]",
		Short: "Show a month with its workout days",
		Args:  cobra.MatchAll(cobra.MaximumNArgs(2), func(_ *cobra.Command, args []string) error {
			if len(args) == 1 {
				return errors.New("give both year and month, or neither")
			}
			return nil
		}),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			year, month := now.Year(), int(now.Month())
			if len(args) == 2 {
				var err error
				if year, err = strconv.Atoi(args[0]); err != nil {
					return fmt.Errorf("invalid year %q", args[0])
				}
				if month, err = strconv.Atoi(args[1]); err != nil {
					return fmt.Errorf("invalid month %q", args[1])
				}
			}

			cal, err := a.api.Calendar(cmd.Context(), year, month)
			if err != nil {
				return explain(err)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderCalendar(cal))
			return nil
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show workout totals and streaks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.api.Stats(cmd.Context())
			if err != nil {
				return explain(err)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderStats(stats))
			return nil
		},
	}
}

func newRoutineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "routine [day-of-week]",
		Short: "Show the routine for today or a day of the week (0 = Sunday)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 0 {
				resp, err := a.api.RoutineToday(ctx)
				if err != nil {
					return explain(err)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderRoutine(resp.DayOfWeek, resp.Routine, resp.Guides, nil))
				return nil
			}

			day, err := strconv.Atoi(args[0])
			if err != nil || day < 0 || day > 6 {
				return fmt.Errorf("day of week must be 0-6, got %q", args[0])
			}
			resp, err := a.api.Routine(ctx, day)
			if err != nil {
				return explain(err)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderRoutine(resp.DayOfWeek, resp.Routine, resp.Guides, nil))
			return nil
		},
	}
}
