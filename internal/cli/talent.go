package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mediahub/pkg/domain"
)

func newTalentCommand(get func() *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "talent",
		Short: "Browse and manage talent profiles",
	}
	cmd.AddCommand(
		newTalentListCommand(get),
		newTalentGetCommand(get),
		newTalentAddCommand(get),
		newTalentUpdateCommand(get),
		newTalentDeleteCommand(get),
		newTalentBookCommand(get),
	)
	return cmd
}

func newTalentListCommand(get func() *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List talent profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := get()
			profiles := e.content.GetAllTalent()
			rows := make([][]string, 0, len(profiles))
			for _, t := range profiles {
				rows = append(rows, []string{
					t.ID, t.Name, t.Title, t.Location,
					strconv.FormatFloat(t.Rating, 'f', 1, 64),
					strconv.FormatFloat(t.HourlyRate, 'f', 0, 64),
					string(t.Availability),
				})
			}
			return e.table(profiles, []string{"ID", "NAME", "TITLE", "LOCATION", "RATING", "RATE", "AVAILABILITY"}, rows)
		},
	}
}

func printTalent(e *env, t domain.TalentProfile) error {
	return e.fields(t,
		"ID", t.ID,
		"Name", t.Name,
		"Title", t.Title,
		"Location", t.Location,
		"Rating", fmt.Sprintf("%.1f (%d reviews)", t.Rating, t.ReviewCount),
		"Hourly rate", strconv.FormatFloat(t.HourlyRate, 'f', 2, 64),
		"Verified", yesNo(t.Verified),
		"Online", yesNo(t.Online),
		"Tags", strings.Join(t.Tags, ", "),
		"Availability", string(t.Availability),
	)
}

func newTalentGetCommand(get func() *env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a talent profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := get()
			t, ok := e.content.GetTalent(args[0])
			if !ok {
				return fmt.Errorf("talent %s not found", args[0])
			}
			return printTalent(e, t)
		},
	}
}

type talentFlags struct {
	name         string
	title        string
	location     string
	rating       float64
	reviewCount  int
	hourlyRate   float64
	imageURL     string
	verified     bool
	online       bool
	tags         []string
	availability string
}

func (f *talentFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.name, "name", "", "name")
	fl.StringVar(&f.title, "title", "", "professional title")
	fl.StringVar(&f.location, "location", "", "location")
	fl.Float64Var(&f.rating, "rating", 0, "rating out of 5")
	fl.IntVar(&f.reviewCount, "reviews", 0, "review count")
	fl.Float64Var(&f.hourlyRate, "rate", 0, "hourly rate")
	fl.StringVar(&f.imageURL, "image", "", "profile image URL")
	fl.BoolVar(&f.verified, "verified", false, "verified badge")
	fl.BoolVar(&f.online, "online", false, "currently online")
	fl.StringSliceVar(&f.tags, "tags", nil, "comma separated tags")
	fl.StringVar(&f.availability, "availability", string(domain.AvailableNow), `"Available Now", "This Week" or "Booked"`)
}

func (f *talentFlags) patch(cmd *cobra.Command) domain.TalentPatch {
	var p domain.TalentPatch
	fl := cmd.Flags()
	if fl.Changed("name") {
		p.Name = &f.name
	}
	if fl.Changed("title") {
		p.Title = &f.title
	}
	if fl.Changed("location") {
		p.Location = &f.location
	}
	if fl.Changed("rating") {
		p.Rating = &f.rating
	}
	if fl.Changed("reviews") {
		p.ReviewCount = &f.reviewCount
	}
	if fl.Changed("rate") {
		p.HourlyRate = &f.hourlyRate
	}
	if fl.Changed("image") {
		p.ImageURL = &f.imageURL
	}
	if fl.Changed("verified") {
		p.Verified = &f.verified
	}
	if fl.Changed("online") {
		p.Online = &f.online
	}
	if fl.Changed("tags") {
		p.Tags = append([]string{}, f.tags...)
	}
	if fl.Changed("availability") {
		a := domain.Availability(f.availability)
		p.Availability = &a
	}
	return p
}

func newTalentAddCommand(get func() *env) *cobra.Command {
	f := &talentFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a talent profile (admin only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := get()
			admin, err := e.require(domain.RoleAdmin)
			if err != nil {
				return err
			}
			if strings.TrimSpace(f.name) == "" {
				return errors.New("--name is required")
			}
			t := e.content.AddTalent(domain.TalentProfile{
				Name:         f.name,
				Title:        f.title,
				Location:     f.location,
				Rating:       f.rating,
				ReviewCount:  f.reviewCount,
				HourlyRate:   f.hourlyRate,
				ImageURL:     f.imageURL,
				Verified:     f.verified,
				Online:       f.online,
				Tags:         append([]string{}, f.tags...),
				Availability: domain.Availability(f.availability),
			})
			e.audit("talent_create", "success", "user_id", admin.ID, "talent_id", t.ID)
			return printTalent(e, t)
		},
	}
	f.register(cmd)
	return cmd
}

func newTalentUpdateCommand(get func() *env) *cobra.Command {
	f := &talentFlags{}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a talent profile (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := get()
			admin, err := e.require(domain.RoleAdmin)
			if err != nil {
				return err
			}
			t, ok := e.content.UpdateTalent(args[0], f.patch(cmd))
			if !ok {
				return fmt.Errorf("talent %s not found", args[0])
			}
			e.audit("talent_update", "success", "user_id", admin.ID, "talent_id", t.ID)
			return printTalent(e, t)
		},
	}
	f.register(cmd)
	return cmd
}

func newTalentDeleteCommand(get func() *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a talent profile (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := get()
			admin, err := e.require(domain.RoleAdmin)
			if err != nil {
				return err
			}
			if !e.content.DeleteTalent(args[0]) {
				return fmt.Errorf("talent %s not found", args[0])
			}
			e.audit("talent_delete", "success", "user_id", admin.ID, "talent_id", args[0])
			e.message("deleted %s", args[0])
			return nil
		},
	}
}

func newTalentBookCommand(get func() *env) *cobra.Command {
	return &cobra.Command{
		Use:   "book <id>",
		Short: "Send a booking request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := get()
			user, _ := e.session.GetSession()
			n, ok := e.content.RequestBooking(user.ID, args[0])
			if !ok {
				return fmt.Errorf("talent %s not found", args[0])
			}
			if e.jsonOut {
				return e.printJSON(n)
			}
			e.message("%s", n.Message)
			return nil
		},
	}
}

func newSettingsCommand(get func() *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Site settings",
	}
	show := &cobra.Command{
		Use:   "get",
		Short: "Show the site settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := get()
			s := e.content.GetSiteSettings()
			featured := "(none)"
			if s.FeaturedMediaID != nil {
				featured = *s.FeaturedMediaID
			}
			return e.fields(s, "Featured media", featured)
		},
	}
	var clearFeatured bool
	feature := &cobra.Command{
		Use:   "feature [media-id]",
		Short: "Set or --clear the featured media item (admin only)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := get()
			admin, err := e.require(domain.RoleAdmin)
			if err != nil {
				return err
			}
			var patch domain.SettingsPatch
			switch {
			case clearFeatured:
				patch.ClearFeatured = true
			case len(args) == 1:
				patch.FeaturedMediaID = &args[0]
			default:
				return errors.New("give a media id or --clear")
			}
			s := e.content.UpdateSiteSettings(patch)
			e.audit("settings_update", "success", "user_id", admin.ID)
			featured := "(none)"
			if s.FeaturedMediaID != nil {
				featured = *s.FeaturedMediaID
			}
			return e.fields(s, "Featured media", featured)
		},
	}
	feature.Flags().BoolVar(&clearFeatured, "clear", false, "unset the featured item")
	cmd.AddCommand(show, feature)
	return cmd
}
