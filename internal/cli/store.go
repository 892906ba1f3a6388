package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-storefront"
	"github.com/goliatone/go-storefront/pkg/viewmodel"
)

func newStoreCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Show and edit store profiles",
	}
	cmd.AddCommand(newStoreShowCmd(opts), newStoreEditCmd(opts), newStoreCreateCmd(opts))
	return cmd
}

func newStoreShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <store-id>",
		Short: "Print a store profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.requireLogin(); err != nil {
				return err
			}

			store, err := a.orch.FetchStore(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printYAML(cmd.OutOrStdout(), store)
		},
	}
}

type profileFlags struct {
	name        string
	description string
	email       string
	logo        string
	logoMime    string
}

func (f *profileFlags) bind(cmd *cobra.Command, withLogo bool) {
	cmd.Flags().StringVar(&f.name, "name", "", "store name")
	cmd.Flags().StringVar(&f.description, "description", "", "store description")
	cmd.Flags().StringVar(&f.email, "email", "", "contact email")
	if withLogo {
		cmd.Flags().StringVar(&f.logo, "logo", "", "path to a new logo image")
		cmd.Flags().StringVar(&f.logoMime, "logo-type", "", "declared logo mime type (sniffed when empty)")
	}
}

func (f *profileFlags) patch(cmd *cobra.Command) storefront.ProfilePatch {
	var patch storefront.ProfilePatch
	if cmd.Flags().Changed("name") {
		patch.Name = &f.name
	}
	if cmd.Flags().Changed("description") {
		patch.Description = &f.description
	}
	if cmd.Flags().Changed("email") {
		patch.Email = &f.email
	}
	return patch
}

func newStoreEditCmd(opts *rootOptions) *cobra.Command {
	flags := &profileFlags{}
	cmd := &cobra.Command{
		Use:   "edit <store-id>",
		Short: "Edit a store profile and save it",
		Long: `Loads the store, applies the given fields and saves it.

When --logo is given the image is uploaded through a signed URL before the
profile is confirmed; otherwise only the text fields are sent.`,
		Example: `  storefront store edit 7 --name "Loja X"
  storefront store edit 7 --logo ./logo.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.requireLogin(); err != nil {
				return err
			}

			ctx := cmd.Context()
			profile, err := a.orch.FetchStore(ctx, id)
			if err != nil {
				return err
			}
			view := viewmodel.NewStoreEditView(a.store)
			defer view.Close()

			a.orch.BeginEdit(ctx, profile)
			if err := a.orch.EditFields(ctx, flags.patch(cmd)); err != nil {
				return err
			}
			if flags.logo != "" {
				if !view.Snapshot().ShowLogoPicker {
					return storefront.ValidationError("this store cannot take a logo yet")
				}
				if _, err := a.orch.PickLogo(ctx, storefront.LocalFile{Path: flags.logo, MimeType: flags.logoMime}); err != nil {
					return err
				}
			}
			return save(cmd, a, view)
		},
	}
	flags.bind(cmd, true)
	return cmd
}

func newStoreCreateCmd(opts *rootOptions) *cobra.Command {
	flags := &profileFlags{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.requireLogin(); err != nil {
				return err
			}

			view := viewmodel.NewStoreEditView(a.store)
			defer view.Close()
			a.orch.BeginEdit(cmd.Context(), storefront.StoreProfile{})
			if err := a.orch.EditFields(cmd.Context(), flags.patch(cmd)); err != nil {
				return err
			}
			return save(cmd, a, view)
		},
	}
	flags.bind(cmd, false)
	return cmd
}

func save(cmd *cobra.Command, a *app, view *viewmodel.StoreEditView) error {
	res, err := a.orch.SaveProfile(cmd.Context())
	if err != nil {
		if msg := view.Snapshot().ErrorMessage; msg != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), msg)
		}
		return err
	}
	if res.Stale {
		return fmt.Errorf("edit session was replaced before the save finished")
	}
	return printYAML(cmd.OutOrStdout(), res.Store)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, storefront.ValidationError("%q is not a valid id", raw)
	}
	return id, nil
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
