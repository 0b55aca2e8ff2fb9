package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cat-board/src/logger"
	"cat-board/src/presenter"
	"cat-board/src/tokenstore"
	"cat-board/src/validator"

	"github.com/spf13/cobra"
)

func newLoginCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "login <token>",
		Short: "Store the access token sent to the Memo API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.InitConsoleLogger(flags.logLevel)
			cfg := loadConfig(flags)

			form := validator.LoginForm{Token: args[0]}
			if err := validator.NewCustomValidator().Validate(&form); err != nil {
				var ve validator.ValidationErrors
				if errors.As(err, &ve) {
					return errors.New(ve.First())
				}
				return err
			}

			token := strings.TrimSpace(form.Token)
			store := tokenstore.NewFileStore(cfg.Auth.StoragePath)
			if err := store.Set(token); err != nil {
				return err
			}
			logger.Log.WithField("file", store.Path()).Debug("トークンを保存しました")

			// JWTでなければクレームは表示しない
			claims, err := tokenstore.Inspect(token)
			if err != nil || claims.Email == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "로그인했습니다.")
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "로그인했습니다: %s\n", claims.Email)
			}
			if err == nil && claims.Expired(time.Now()) {
				fmt.Fprintln(cmd.ErrOrStderr(), "경고: 만료된 토큰입니다. 새 토큰으로 다시 로그인해 주세요.")
			}
			return nil
		},
	}
}

func newLogoutCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.InitConsoleLogger(flags.logLevel)
			cfg := loadConfig(flags)

			if err := tokenstore.NewFileStore(cfg.Auth.StoragePath).Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "로그아웃했습니다.")
			return nil
		},
	}
}

func newWhoamiCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the claims of the stored token (not verified)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.InitConsoleLogger(flags.logLevel)
			cfg := loadConfig(flags)

			token, err := tokenstore.NewFileStore(cfg.Auth.StoragePath).Token()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if token == "" {
				fmt.Fprintln(out, "로그인되어 있지 않습니다.")
				return nil
			}

			claims, err := tokenstore.Inspect(token)
			if err != nil {
				fmt.Fprintln(out, "JWT가 아닌 토큰이 저장되어 있습니다.")
				return nil
			}

			loc, err := time.LoadLocation(cfg.Display.Timezone)
			if err != nil {
				loc = time.UTC
			}

			fmt.Fprintf(out, "user_id: %d\n", claims.UserID)
			fmt.Fprintf(out, "email:   %s\n", claims.Email)
			if claims.Type != "" {
				fmt.Fprintf(out, "type:    %s\n", claims.Type)
			}
			now := time.Now()
			if left, ok := claims.ExpiresIn(now); ok {
				status := "valid"
				if claims.Expired(now) {
					status = "expired"
				}
				fmt.Fprintf(out, "expires: %s (%s, %s)\n",
					claims.ExpiresAt.Time.In(loc).Format(presenter.DateLayout), status, left.Round(time.Second))
			}
			return nil
		},
	}
}
