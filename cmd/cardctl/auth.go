package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"challenge-cards/internal/client"
	"challenge-cards/internal/domain"
	"challenge-cards/internal/session"
)

var (
	loginEmail    string
	loginPassword string

	registration client.RegisterRequest
	country      string
	experience   string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and remember the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := current.api.Login(cmd.Context(), loginEmail, loginPassword)
		if err != nil {
			return err
		}
		if err := current.session.Authenticate(cmd.Context(), res.Token, profileOf(res.User)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", res.User.Email)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a respondent account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if country != "" {
			registration.Demographics.Country = &country
		}
		if experience != "" {
			registration.Demographics.Experience = &experience
		}
		res, err := current.api.Register(cmd.Context(), registration)
		if err != nil {
			return err
		}
		if err := current.session.Authenticate(cmd.Context(), res.Token, profileOf(res.User)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered and signed in as %s\n", res.User.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.session.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in respondent",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, ok := current.session.Token()
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Not signed in; ratings are kept on this machine only")
			return nil
		}
		user, err := current.api.Profile(cmd.Context(), token)
		if err != nil {
			if isAuthError(err) {
				_ = current.session.Expire(cmd.Context())
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s <%s>\n", user.FirstName, user.LastName, user.Email)
		return nil
	},
}

func profileOf(u client.User) session.Profile {
	return session.Profile{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
}

func isAuthError(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized)
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")

	f := registerCmd.Flags()
	f.StringVar(&registration.Email, "email", "", "account email")
	f.StringVar(&registration.Password, "password", "", "account password")
	f.StringVar(&registration.FirstName, "first-name", "", "first name")
	f.StringVar(&registration.LastName, "last-name", "", "last name")
	f.StringVar(&registration.Demographics.AgeGroup, "age-group", "", "age group")
	f.StringVar(&registration.Demographics.Profession, "profession", "", "profession")
	f.StringVar(&registration.Demographics.Gender, "gender", "", "gender")
	f.StringVar(&registration.Demographics.Background, "background", "", "background")
	f.StringVar(&registration.Demographics.EducationLevel, "education-level", "", "education level")
	f.StringVar(&country, "country", "", "country (optional)")
	f.StringVar(&experience, "experience", "", "experience (optional)")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}
