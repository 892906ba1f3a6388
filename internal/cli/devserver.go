package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-storefront"
	"github.com/goliatone/go-storefront/internal/devserver"
)

func newDevserverCmd(opts *rootOptions) *cobra.Command {
	var (
		addr   string
		seed   bool
		tokens []string
	)
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run an in-memory storefront backend",
		Example: `  storefront devserver --seed
  storefront --api-url http://localhost:8080/api login devtoken`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger := cfg.Logger()
			srv := devserver.New(devserver.WithLogger(logger), devserver.WithTokens(tokens...))
			if seed {
				store := srv.SeedStore(storefront.StoreProfile{Name: "Loja Demo", Description: "Roupas", Email: "demo@loja.test"})
				product := srv.SeedProduct(storefront.Product{
					Name:    "Camisa",
					StoreID: store.ID,
					Sizes: []storefront.Size{
						{ID: 1, Name: "P", Quantity: 0, Price: decimal.RequireFromString("49.90")},
						{ID: 2, Name: "M", Quantity: 5, Price: decimal.RequireFromString("59.90")},
						{ID: 3, Name: "G", Quantity: 2, Price: decimal.RequireFromString("64.90")},
					},
				})
				fmt.Fprintf(cmd.OutOrStdout(), "seeded store %d and product %d\n", store.ID, product.ID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", addr)
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&seed, "seed", false, "seed a demo store and product")
	cmd.Flags().StringSliceVar(&tokens, "token", nil, "accepted bearer tokens (any token when empty)")
	return cmd
}
