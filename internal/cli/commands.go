package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/dmitrijs2005/chatattach/internal/common"
	"github.com/dmitrijs2005/chatattach/internal/models"
)

var errUsage = errors.New("usage")

const helpText = `Available commands:
  send <message-id|-> <file> [mime-type]
  send-image <message-id|-> <image-file>
  fetch <message-id> <attachment-id> [out-file]
  thumb <message-id> <attachment-id> <out-file> <width> <height>
  local <message-id> [attachment-id]
  cached <message-id> <attachment-id>
  status <message-id>
  forget <message-id>
  pending
  purge
  clear-cache
  exit`

// Exec runs one command. args[0] is the command word.
func (a *App) Exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "help":
		fmt.Fprintln(a.out, helpText)
		return nil
	case "send":
		return a.send(ctx, rest)
	case "send-image":
		return a.sendImage(ctx, rest)
	case "fetch":
		return a.fetch(ctx, rest)
	case "thumb":
		return a.thumb(ctx, rest)
	case "local":
		return a.local(ctx, rest)
	case "cached":
		return a.cached(rest)
	case "status":
		return a.status(rest)
	case "forget":
		return a.forget(rest)
	case "pending":
		return a.pending(ctx)
	case "purge":
		return a.purge(ctx)
	case "clear-cache":
		return a.clearCache()
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func usage(line string) error {
	return fmt.Errorf("%w: %s", errUsage, line)
}

func newMessageID(id string) (string, error) {
	if id != "-" {
		return id, nil
	}
	return common.MakeRandHexString(8)
}

func (a *App) send(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return usage("send <message-id|-> <file> [mime-type]")
	}
	id, err := newMessageID(args[0])
	if err != nil {
		return err
	}

	src := models.Binary{Path: args[1]}
	if len(args) == 3 {
		src.MimeType = args[2]
	}

	msg := a.message(id, "")
	if err := a.svc.SendWithAttachment(ctx, msg, src); err != nil {
		return err
	}
	return a.printSent(msg)
}

func (a *App) sendImage(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("send-image <message-id|-> <image-file>")
	}
	id, err := newMessageID(args[0])
	if err != nil {
		return err
	}

	img, err := imaging.Open(args[1], imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}

	msg := a.message(id, "")
	if err := a.svc.SendWithImage(ctx, msg, img); err != nil {
		return err
	}
	return a.printSent(msg)
}

func (a *App) printSent(msg *models.Message) error {
	att, _ := msg.Attachment()
	_, err := fmt.Fprintf(a.out, "sent %s: attachment %s (%s, %d bytes)\n", msg.ID, att.ID, att.MimeType, att.Size)
	return err
}

func (a *App) fetch(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return usage("fetch <message-id> <attachment-id> [out-file]")
	}

	data, err := a.svc.Fetch(ctx, a.message(args[0], args[1]))
	if err != nil {
		return err
	}
	return a.emit(data, args[2:], "fetched")
}

func (a *App) thumb(ctx context.Context, args []string) error {
	if len(args) != 5 {
		return usage("thumb <message-id> <attachment-id> <out-file> <width> <height>")
	}
	w, err := strconv.Atoi(args[3])
	if err != nil {
		return fmt.Errorf("width: %w", err)
	}
	h, err := strconv.Atoi(args[4])
	if err != nil {
		return fmt.Errorf("height: %w", err)
	}

	img, err := a.svc.Thumbnail(ctx, a.message(args[0], args[1]), w, h)
	if err != nil {
		return err
	}
	if err := imaging.Save(img, args[2]); err != nil {
		return fmt.Errorf("save thumbnail: %w", err)
	}

	b := img.Bounds()
	_, err = fmt.Fprintf(a.out, "thumbnail %dx%d written to %s\n", b.Dx(), b.Dy(), args[2])
	return err
}

func (a *App) local(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usage("local <message-id> [attachment-id]")
	}
	attID := ""
	if len(args) == 2 {
		attID = args[1]
	}

	data, err := a.svc.LocalBinary(ctx, a.message(args[0], attID))
	if errors.Is(err, common.ErrNoLocalBinary) {
		_, err = fmt.Fprintln(a.out, "no local binary")
		return err
	}
	if err != nil {
		return err
	}
	return a.emit(data, nil, "local")
}

func (a *App) cached(args []string) error {
	if len(args) != 2 {
		return usage("cached <message-id> <attachment-id>")
	}

	data := a.svc.CachedBinary(a.message(args[0], args[1]))
	if data == nil {
		_, err := fmt.Fprintln(a.out, "not cached")
		return err
	}
	return a.emit(data, nil, "cached")
}

func (a *App) status(args []string) error {
	if len(args) != 1 {
		return usage("status <message-id>")
	}
	_, err := fmt.Fprintf(a.out, "%s: %s\n", args[0], a.svc.Status(args[0]))
	return err
}

func (a *App) forget(args []string) error {
	if len(args) != 1 {
		return usage("forget <message-id>")
	}
	id := args[0]
	if !a.svc.Forget(id) {
		_, err := fmt.Fprintf(a.out, "%s: busy\n", id)
		return err
	}

	a.mu.Lock()
	delete(a.messages, id)
	a.mu.Unlock()

	_, err := fmt.Fprintf(a.out, "forgot %s\n", id)
	return err
}

func (a *App) pending(ctx context.Context) error {
	recs, err := a.area.Pending(ctx)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		_, err := fmt.Fprintln(a.out, "nothing pending")
		return err
	}
	for _, r := range recs {
		fmt.Fprintf(a.out, "%s\t%s\t%d bytes\t%s\n", r.MessageID, r.MimeType, r.Size, r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func (a *App) purge(ctx context.Context) error {
	n, err := a.area.PurgeUploaded(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "purged %d staged binaries\n", n)
	return err
}

func (a *App) clearCache() error {
	if err := a.svc.ClearCache(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(a.out, "cache cleared")
	return err
}

// emit writes data to the file named in out, or reports its size.
func (a *App) emit(data []byte, out []string, what string) error {
	if len(out) == 1 {
		if err := os.WriteFile(out[0], data, 0o600); err != nil {
			return err
		}
		_, err := fmt.Fprintf(a.out, "%s %d bytes to %s\n", what, len(data), out[0])
		return err
	}
	_, err := fmt.Fprintf(a.out, "%s %d bytes\n", what, len(data))
	return err
}
