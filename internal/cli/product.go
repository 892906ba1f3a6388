package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-storefront"
	"github.com/goliatone/go-storefront/pkg/viewmodel"
)

func newProductCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Browse products",
	}
	var sizeID int64
	show := &cobra.Command{
		Use:   "show <product-id>",
		Short: "Print a product with its sizes and the active price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, view, err := loadProduct(cmd, opts, args[0], sizeID)
			if err != nil {
				return err
			}
			defer a.close()
			defer view.Close()
			return renderProduct(cmd.OutOrStdout(), view.Snapshot())
		},
	}
	show.Flags().Int64Var(&sizeID, "size", 0, "size to select instead of the first available one")
	cmd.AddCommand(show)
	return cmd
}

func newBagCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bag",
		Short: "Manage the bag",
	}
	var sizeID int64
	add := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add one unit of a product size to the bag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, view, err := loadProduct(cmd, opts, args[0], sizeID)
			if err != nil {
				return err
			}
			defer a.close()
			defer view.Close()

			if err := view.AddToBag(cmd.Context()); err != nil {
				if msg := view.Snapshot().BagError; msg != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), msg)
				}
				return err
			}
			snap := view.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s) to the bag: %s\n", snap.Product.Name, snap.Selected.Name, snap.BagStatus)
			return nil
		},
	}
	add.Flags().Int64Var(&sizeID, "size", 0, "size to add instead of the first available one")
	cmd.AddCommand(add)
	return cmd
}

func loadProduct(cmd *cobra.Command, opts *rootOptions, rawID string, sizeID int64) (*app, *viewmodel.ProductView, error) {
	id, err := parseID(rawID)
	if err != nil {
		return nil, nil, err
	}
	a, err := newApp(cmd.Context(), opts)
	if err != nil {
		return nil, nil, err
	}
	if err := a.requireLogin(); err != nil {
		a.close()
		return nil, nil, err
	}
	view := viewmodel.NewProductView(a.store, a.orch, viewmodel.WithCurrency(a.cfg.Currency))
	if _, err := a.orch.LoadProduct(cmd.Context(), id); err != nil {
		view.Close()
		a.close()
		return nil, nil, err
	}
	if sizeID != 0 {
		if err := view.Select(sizeID); err != nil {
			view.Close()
			a.close()
			return nil, nil, err
		}
	}
	return a, view, nil
}

func renderProduct(w io.Writer, snap viewmodel.ProductSnapshot) error {
	if snap.Product == nil {
		return storefront.NewError(storefront.KindNotFound, "no product loaded", nil)
	}
	fmt.Fprintf(w, "%s (#%d)\n", snap.Product.Name, snap.Product.ID)
	if snap.Product.Description != "" {
		fmt.Fprintln(w, snap.Product.Description)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nSIZE\tID\tSTOCK\tPRICE")
	for _, size := range snap.Product.Sizes {
		marker := ""
		if snap.Selected != nil && snap.Selected.ID == size.ID {
			marker = " *"
		}
		fmt.Fprintf(tw, "%s%s\t%d\t%d\t%s\n", size.Name, marker, size.ID, size.Quantity, size.Price.StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if snap.PriceLabel == "" {
		fmt.Fprintln(w, "\nsold out")
		return nil
	}
	fmt.Fprintf(w, "\nprice: %s\n", snap.PriceLabel)
	return nil
}
