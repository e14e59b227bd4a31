package main

import (
	"context"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"job-portal/internal/jobs"
	"job-portal/internal/models"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the admin account and development data",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return runSeed(ctx, a, cmd.OutOrStdout())
		})
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Mark offers whose expiry date has passed as expired",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return runExpire(ctx, a, cmd.OutOrStdout())
		})
	},
}

var (
	staffEmail     string
	staffPassword  string
	staffSuperuser bool
)

var createStaffCmd = &cobra.Command{
	Use:   "create-staff <username>",
	Short: "Create a staff account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := jobs.RegisterInput{
			Username:    args[0],
			Email:       staffEmail,
			Password:    staffPassword,
			IsStaff:     true,
			IsSuperuser: staffSuperuser,
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return runCreateStaff(ctx, a, in, cmd.OutOrStdout())
		})
	},
}

var unban bool

var banCmd = &cobra.Command{
	Use:   "ban <username>",
	Short: "Ban or unban a user on behalf of the admin account",
	Long: `Ban or unban a user on behalf of the configured admin account.

The usual moderation rules apply: staff and superuser accounts cannot be banned.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			return runBan(ctx, a, args[0], !unban, cmd.OutOrStdout())
		})
	},
}

func init() {
	createStaffCmd.Flags().StringVarP(&staffEmail, "email", "e", "", "Email address of the account")
	createStaffCmd.Flags().StringVarP(&staffPassword, "password", "p", "", "Password of the account (at least 8 characters)")
	createStaffCmd.Flags().BoolVar(&staffSuperuser, "superuser", false, "Also grant superuser rights")
	_ = createStaffCmd.MarkFlagRequired("email")
	_ = createStaffCmd.MarkFlagRequired("password")

	banCmd.Flags().BoolVar(&unban, "unban", false, "Lift the ban instead of setting it")
}

func runSeed(ctx context.Context, a *app, out io.Writer) error {
	if _, created, err := a.seeder.EnsureAdmin(ctx, a.cfg.Admin); err != nil {
		return errors.Wrap(err, "ensure admin account")
	} else if created {
		fmt.Fprintf(out, "Created admin account %s\n", a.cfg.Admin.Username)
	}

	result, err := a.seeder.Seed(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Seeded %d users and %d offers\n", result.Users, result.Offers)
	return nil
}

func runExpire(ctx context.Context, a *app, out io.Writer) error {
	n, err := a.svc.ExpireOffers(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Expired %d offers\n", n)
	return nil
}

func runCreateStaff(ctx context.Context, a *app, in jobs.RegisterInput, out io.Writer) error {
	user, err := a.svc.RegisterUser(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Created staff account %s (%s)\n", user.Username, user.ID)
	return nil
}

func runBan(ctx context.Context, a *app, username string, banned bool, out io.Writer) error {
	admin, _, err := a.seeder.EnsureAdmin(ctx, a.cfg.Admin)
	if err != nil {
		return errors.Wrap(err, "ensure admin account")
	}

	target, err := a.repo.FindUserByUsername(ctx, username)
	if err != nil {
		return errors.Wrapf(err, "find user %s", username)
	}

	user, err := a.svc.SetBanned(ctx, admin, target.ID, banned)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s is now %s\n", user.Username, banState(user))
	return nil
}

func banState(u *models.User) string {
	if u.IsBanned {
		return "banned"
	}
	return "active"
}
