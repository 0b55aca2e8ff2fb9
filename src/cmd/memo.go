package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"cat-board/src/client"
	"cat-board/src/domain"
	"cat-board/src/logger"
	"cat-board/src/presenter"
	"cat-board/src/validator"

	"github.com/spf13/cobra"
)

const (
	msgEmptyBoard        = "아직 메모가 없어요.\n첫 메모를 남겨 보세요!"
	msgServerUnavailable = "서버에 연결할 수 없습니다. 백엔드가 실행 중인지 확인해주세요."
)

// errLoginRequired is returned after a 401; the token has already been cleared
var errLoginRequired = errors.New("로그인이 필요합니다. `catboard login <token>` 으로 토큰을 저장해 주세요")

// cliApp builds the data-sync layer with console logging
func cliApp(cmd *cobra.Command, flags *rootFlags) *app {
	logger.InitConsoleLogger(flags.logLevel)
	return newApp(cmd.Context(), loadConfig(flags), logger.Log, nil)
}

// describe turns data-sync errors into CLI messages
func describe(err error) error {
	if client.IsUnauthorized(err) {
		return errLoginRequired
	}
	if _, ok := client.IsTransport(err); ok {
		return fmt.Errorf("%s (%w)", msgServerUnavailable, err)
	}
	return err
}

func newListCommand(flags *rootFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List memos as notes",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := cliApp(cmd, flags)
			defer a.Close()

			state := a.memos.Load(cmd.Context())
			if state.Error != nil {
				return describe(state.Error)
			}

			notes, err := a.mapper.ToNotes(state.Data)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(notes)
			}
			printNotes(cmd.OutOrStdout(), notes)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print notes as JSON")
	return cmd
}

func printNotes(w io.Writer, notes []domain.Note) {
	if len(notes) == 0 {
		fmt.Fprintln(w, msgEmptyBoard)
		return
	}
	for _, n := range notes {
		fmt.Fprintf(w, "#%s\t%s\t%s\n", n.ID, n.Date, strings.ReplaceAll(n.Text, "\n", " "))
	}
}

func newAddCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "add <text...>",
		Short: "Add a memo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			form := validator.CreateMemoForm{Content: strings.Join(args, " ")}
			if err := validator.NewCustomValidator().Validate(&form); err != nil {
				var ve validator.ValidationErrors
				if errors.As(err, &ve) {
					return errors.New(ve.First())
				}
				return err
			}

			a := cliApp(cmd, flags)
			defer a.Close()

			memo, err := a.memos.Create(cmd.Context(), domain.CreateMemoRequest{Content: form.Content})
			if err != nil {
				var ve *domain.ValidationError
				if errors.As(err, &ve) {
					return err
				}
				return describe(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "메모를 추가했습니다 (#%d)\n", memo.ID)
			return nil
		},
	}
}

func newRemoveCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a memo",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := presenter.ParseNoteID(args[0])
			if err != nil {
				return err
			}

			a := cliApp(cmd, flags)
			defer a.Close()

			if err := a.memos.Remove(cmd.Context(), id); err != nil {
				return describe(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "메모를 삭제했습니다 (#%d)\n", id)
			return nil
		},
	}
}
