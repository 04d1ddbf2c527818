package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mediahub/internal/content"
	"mediahub/internal/mediaclient"
	"mediahub/internal/reconcile"
	"mediahub/pkg/domain"
)

func newMediaCommand(get func() *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "List, inspect and edit media items",
	}
	cmd.AddCommand(
		newMediaListCommand(get),
		newMediaGetCommand(get),
		newMediaAddCommand(get),
		newMediaUpdateCommand(get),
		newMediaDeleteCommand(get),
		newMediaExportCommand(get),
		newMediaImportCommand(get),
	)
	return cmd
}

func newMediaListCommand(get func() *env) *cobra.Command {
	var mediaType string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List media, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := get()
			res, err := e.media.List(cmd.Context())
			if err != nil {
				return err
			}
			notice(e.errOut, res)
			items := res.Value
			if mediaType != "" {
				filtered := items[:0:0]
				for _, item := range items {
					if string(item.MediaType) == mediaType {
						filtered = append(filtered, item)
					}
				}
				items = filtered
			}
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				premium := ""
				if item.IsPremium {
					premium = "premium"
				}
				rows = append(rows, []string{
					item.ID,
					string(item.MediaType),
					truncate(item.Title, 40),
					item.CreatorName,
					strconv.FormatInt(item.Views, 10),
					premium,
					item.UploadedAt,
				})
			}
			return e.table(items, []string{"ID", "TYPE", "TITLE", "CREATOR", "VIEWS", "", "UPLOADED"}, rows)
		},
	}
	cmd.Flags().StringVar(&mediaType, "type", "", "only show video or image items")
	return cmd
}

func newMediaGetCommand(get func() *env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one media item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := get()
			res, err := e.media.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			notice(e.errOut, res)
			return printMedia(e, res.Value)
		},
	}
}

func printMedia(e *env, item domain.MediaItem) error {
	price := ""
	if item.Price != nil {
		price = strconv.FormatFloat(*item.Price, 'f', 2, 64)
	}
	return e.fields(item,
		"ID", item.ID,
		"Title", item.Title,
		"Type", string(item.MediaType),
		"Creator", item.CreatorName,
		"Description", item.Description,
		"Source", item.SourceURL,
		"Thumbnail", item.ThumbnailURL,
		"Duration", item.Duration,
		"Views", strconv.FormatInt(item.Views, 10),
		"Tags", strings.Join(item.Tags, ", "),
		"Premium", yesNo(item.IsPremium),
		"Price", price,
		"Uploaded", item.UploadedAt,
	)
}

type mediaFlags struct {
	title       string
	description string
	mediaType   string
	source      string
	thumbnail   string
	duration    string
	tags        []string
	premium     bool
	price       float64
	file        string
}

func (f *mediaFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.title, "title", "", "title")
	fl.StringVar(&f.description, "description", "", "description")
	fl.StringVar(&f.mediaType, "type", "", "video or image")
	fl.StringVar(&f.source, "source", "", "source URL")
	fl.StringVar(&f.thumbnail, "thumbnail", "", "thumbnail URL")
	fl.StringVar(&f.duration, "duration", "", "display duration, e.g. 12:34")
	fl.StringSliceVar(&f.tags, "tags", nil, "comma separated tags")
	fl.BoolVar(&f.premium, "premium", false, "mark as premium")
	fl.Float64Var(&f.price, "price", 0, "price for premium items")
	fl.StringVar(&f.file, "file", "", "upload a local file")
}

func (f *mediaFlags) attachment() (*reconcile.File, error) {
	if f.file == "" {
		return nil, nil
	}
	info, err := os.Stat(f.file)
	if err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("upload file: %s is a directory", f.file)
	}
	return &reconcile.File{Path: f.file, Name: filepath.Base(f.file)}, nil
}

func (f *mediaFlags) patch(cmd *cobra.Command) domain.MediaPatch {
	var p domain.MediaPatch
	fl := cmd.Flags()
	if fl.Changed("title") {
		p.Title = &f.title
	}
	if fl.Changed("description") {
		p.Description = &f.description
	}
	if fl.Changed("type") {
		mt := domain.MediaType(f.mediaType)
		p.MediaType = &mt
	}
	if fl.Changed("source") {
		p.SourceURL = &f.source
	}
	if fl.Changed("thumbnail") {
		p.ThumbnailURL = &f.thumbnail
	}
	if fl.Changed("duration") {
		p.Duration = &f.duration
	}
	if fl.Changed("tags") {
		p.Tags = append([]string{}, f.tags...)
	}
	if fl.Changed("premium") {
		p.IsPremium = &f.premium
	}
	if fl.Changed("price") {
		p.Price = &f.price
	}
	return p
}

// progressPrinter reports upload progress on one stderr line.
func progressPrinter(e *env) mediaclient.ProgressFunc {
	if e.jsonOut {
		return nil
	}
	last := -1
	return func(percent int) {
		if percent == last {
			return
		}
		last = percent
		fmt.Fprintf(e.errOut, "\ruploading %3d%%", percent)
		if percent >= 100 {
			fmt.Fprintln(e.errOut)
		}
	}
}

func newMediaAddCommand(get func() *env) *cobra.Command {
	f := &mediaFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Publish a media item as the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := get()
			user, err := e.require()
			if err != nil {
				return err
			}
			if strings.TrimSpace(f.title) == "" {
				return errors.New("--title is required")
			}
			file, err := f.attachment()
			if err != nil {
				return err
			}
			if file == nil && f.source == "" {
				return errors.New("either --file or --source is required")
			}
			mediaType := domain.MediaType(f.mediaType)
			if mediaType == "" {
				mediaType = domain.MediaVideo
			}
			item := domain.MediaItem{
				UserID:        user.ID,
				Title:         f.title,
				Description:   f.description,
				MediaType:     mediaType,
				SourceURL:     f.source,
				ThumbnailURL:  f.thumbnail,
				Duration:      f.duration,
				CreatorName:   user.Name,
				CreatorAvatar: user.AvatarURL,
				Tags:          append([]string{}, f.tags...),
				IsPremium:     f.premium,
			}
			if cmd.Flags().Changed("price") {
				item.Price = &f.price
			}
			res, err := e.media.Create(cmd.Context(), item, file, progressPrinter(e))
			if err != nil {
				return err
			}
			notice(e.errOut, res)
			e.logger.Info("media created", "media_id", res.Value.ID, "source", string(res.Source))
			return printMedia(e, res.Value)
		},
	}
	f.register(cmd)
	return cmd
}

// ownedMedia loads id and checks that user may change it.
func ownedMedia(e *env, cmd *cobra.Command, user domain.User, id string) error {
	if user.Role == domain.RoleAdmin {
		return nil
	}
	res, err := e.media.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	if res.Value.UserID != user.ID {
		return errors.New("permission denied: you can only change your own media")
	}
	return nil
}

func newMediaUpdateCommand(get func() *env) *cobra.Command {
	f := &mediaFlags{}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a media item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := get()
			user, err := e.require()
			if err != nil {
				return err
			}
			if err := ownedMedia(e, cmd, user, args[0]); err != nil {
				return err
			}
			file, err := f.attachment()
			if err != nil {
				return err
			}
			res, err := e.media.Update(cmd.Context(), args[0], f.patch(cmd), file, progressPrinter(e))
			if err != nil {
				return err
			}
			notice(e.errOut, res)
			return printMedia(e, res.Value)
		},
	}
	f.register(cmd)
	return cmd
}

func newMediaDeleteCommand(get func() *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a media item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := get()
			user, err := e.require()
			if err != nil {
				return err
			}
			if err := ownedMedia(e, cmd, user, args[0]); err != nil {
				return err
			}
			res, err := e.media.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			notice(e.errOut, res)
			if user.Role == domain.RoleAdmin {
				e.audit("media_delete", "success", "user_id", user.ID, "media_id", args[0])
			}
			e.message("deleted %s", args[0])
			return nil
		},
	}
}

// servedLocally reports whether a failed bulk call may fall back to local data.
// The rule matches the reconciling service: outages only, never after cancellation.
func servedLocally(ctx context.Context, err error) bool {
	return ctx.Err() == nil && reconcile.IsOutage(err)
}

func newMediaExportCommand(get func() *env) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all videos to a JSON backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := get()
			items, err := e.client.ExportVideos(cmd.Context())
			if err != nil {
				if !servedLocally(cmd.Context(), err) {
					return err
				}
				fmt.Fprintf(e.errOut, "offline: exporting local data (%v)\n", err)
				items = e.content.ExportVideos()
			}
			data, err := content.MarshalExport(items)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = e.out.Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(e.errOut, "exported %d videos to %s\n", len(items), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newMediaImportCommand(get func() *env) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import media items from a JSON backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := get()
			user, err := e.require(domain.RoleAdmin)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}
			result, err := e.client.ImportVideos(cmd.Context(), filepath.Base(args[0]), bytes.NewReader(data))
			if err == nil {
				e.audit("media_import", "success", "user_id", user.ID, "imported", result.Imported, "source", "remote")
				e.message("%s", result.Message)
				return nil
			}
			if !servedLocally(cmd.Context(), err) {
				return err
			}
			fmt.Fprintf(e.errOut, "offline: importing into local data (%v)\n", err)
			items, err := content.ParseMediaImport(data)
			if err != nil {
				return err
			}
			n := e.content.ImportMedia(items)
			e.audit("media_import", "success", "user_id", user.ID, "imported", n, "source", "local")
			e.message("Imported %d videos.", n)
			return nil
		},
	}
}
