package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/ingenieros-gt/evote/internal/common"
)

var errUsage = errors.New("usage: evote-admin import <file.json>... | promote <colegiado> | set-password <colegiado> | photo <candidateId> <image>")

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "import":
		return a.importRoster(ctx, rest)
	case "promote":
		return a.promote(ctx, rest)
	case "set-password":
		return a.setPassword(ctx, rest)
	case "photo":
		return a.uploadPhoto(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprintln(a.out, errUsage.Error())
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%w", cmd, errUsage)
	}
}

func (a *App) importRoster(ctx context.Context, files []string) error {
	if len(files) == 0 {
		return errUsage
	}

	total := 0
	for _, f := range files {
		n, err := a.roster.ImportFile(ctx, f)
		if err != nil {
			return fmt.Errorf("%s: %s", f, common.Message(err))
		}
		fmt.Fprintf(a.out, "%s: %d engineers imported\n", f, n)
		total += n
	}
	if len(files) > 1 {
		fmt.Fprintf(a.out, "total: %d\n", total)
	}
	return nil
}

func (a *App) promote(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	if err := a.roster.Promote(ctx, args[0]); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("colegiado %s not found in roster", args[0])
		}
		return err
	}
	fmt.Fprintf(a.out, "colegiado %s is now an administrator\n", args[0])
	return nil
}

func (a *App) setPassword(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	pw, err := GetNewPassword(a.out)
	if err != nil {
		return err
	}

	if err := a.roster.SetPassword(ctx, args[0], pw); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("colegiado %s not found in roster", args[0])
		}
		return errors.New(common.Message(err))
	}
	fmt.Fprintf(a.out, "password updated for colegiado %s\n", args[0])
	return nil
}

// uploadPhoto stores an image as the candidate's photo through a presigned
// upload URL.
func (a *App) uploadPhoto(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid candidate id %q", args[0])
	}

	data, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}

	up, err := a.campaigns.PresignPhoto(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) || errors.Is(err, common.ErrorBadRequest) {
			return errors.New(common.Message(err))
		}
		return err
	}

	if err := a.upload(ctx, up.UploadURL, data, http.DetectContentType(data)); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "photo for candidate %d stored as %s\n", id, up.Key)
	return nil
}
