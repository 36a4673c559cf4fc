package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tinyship/reviewreply/internal/models"
	"github.com/tinyship/reviewreply/internal/textutil"
)

var productCmd = &cobra.Command{
	Use:     "product",
	Aliases: []string{"p"},
	Short:   "Manage products",
}

var productAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a product",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return productAddRun(strings.Join(args, " "))
	},
}

var productListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List products",
	RunE: func(cmd *cobra.Command, args []string) error {
		return productListRun()
	},
}

func init() {
	productCmd.AddCommand(productAddCmd)
	productCmd.AddCommand(productListCmd)
	rootCmd.AddCommand(productCmd)
}

func productAddRun(title string) error {
	title = textutil.SanitizeField(title)
	if title == "" {
		return fmt.Errorf("product title is empty")
	}

	if dryRun {
		ui.DryRunMsg("Would add product %q", title)
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}

	p := &models.Product{Title: title}
	if err := s.CreateProduct(context.Background(), p); err != nil {
		return err
	}
	ui.Success("Added product %d: %s", p.ID, p.Title)
	return nil
}

func productListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	products, err := s.ListProducts(context.Background())
	if err != nil {
		return err
	}
	if len(products) == 0 {
		ui.Info("No products yet. Add one with 'reviewreply product add <title>'.")
		return nil
	}

	table := ui.Table([]string{"ID", "Title", "Added"})
	for _, p := range products {
		table.Append([]string{
			strconv.FormatInt(p.ID, 10),
			p.Title,
			p.CreatedAt.Local().Format("2006-01-02"),
		})
	}
	return table.Render()
}
