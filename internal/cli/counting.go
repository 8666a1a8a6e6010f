package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/fekuna/omnipos-stock-verifier/internal/counting"
	"github.com/fekuna/omnipos-stock-verifier/internal/model"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/dto"
	"github.com/spf13/cobra"
)

type verifyOptions struct {
	version        int64
	splits         []float64
	cartons        float64
	unitsPerCarton float64
	loose          float64
	reverseCartons int
	batches        map[string]string
	mrp            float64
	damaged        float64
	serials        []string
	narration      string
}

func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &verifyOptions{}

	cmd := &cobra.Command{
		Use:   "verify <sku> [observed-qty]",
		Short: "Record a physical count for an item",
		Long: `Record a physical count. The quantity is taken from the argument, or
from --splits, --cartons or --batch when those are given.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := opts.input(cmd, args)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), rootOpts, func(ctx context.Context, a *app) error {
				item, err := a.engine.VerifyItem(ctx, input)
				if err != nil {
					return err
				}
				if rootOpts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), item)
				}
				printItem(cmd.OutOrStdout(), *item)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&opts.version, "version", 0, "expected item version (default: current local version)")
	cmd.Flags().Float64SliceVar(&opts.splits, "splits", nil, "partial counts to sum")
	cmd.Flags().Float64Var(&opts.cartons, "cartons", 0, "number of full cartons")
	cmd.Flags().Float64Var(&opts.unitsPerCarton, "units-per-carton", 0, "units in each carton")
	cmd.Flags().Float64Var(&opts.loose, "loose", 0, "loose units outside cartons")
	cmd.Flags().IntVar(&opts.reverseCartons, "reverse-cartons", 0, "derive units per carton from the total across this many cartons")
	cmd.Flags().StringToStringVar(&opts.batches, "batch", nil, "per-batch counts as batch-id=qty")
	cmd.Flags().Float64Var(&opts.mrp, "mrp", 0, "verified MRP")
	cmd.Flags().Float64Var(&opts.damaged, "damaged", 0, "damaged quantity")
	cmd.Flags().StringSliceVar(&opts.serials, "serial", nil, "serial numbers")
	cmd.Flags().StringVar(&opts.narration, "narration", "", "free-text note")
	cmd.MarkFlagsMutuallyExclusive("splits", "cartons", "batch")
	cmd.MarkFlagsMutuallyExclusive("cartons", "reverse-cartons")

	return cmd
}

func (o *verifyOptions) input(cmd *cobra.Command, args []string) (*dto.VerifyInput, error) {
	input := &dto.VerifyInput{SKU: args[0], ExpectedVersion: o.version}
	details := &model.ItemDetails{}
	touched := false

	if len(args) == 2 {
		qty, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid quantity %q: %w", args[1], err)
		}
		input.ObservedQty = qty
	}

	switch {
	case len(o.splits) > 0:
		input.ObservedQty = counting.SplitTotal(o.splits)
		details.SplitEntries = o.splits
		touched = true
	case cmd.Flags().Changed("cartons"):
		input.ObservedQty = counting.CartonTotal(o.cartons, o.unitsPerCarton, o.loose)
		details.CartonConfig = &model.CartonConfig{
			CartonCount:    o.cartons,
			UnitsPerCarton: o.unitsPerCarton,
			IsCartonBased:  true,
		}
		touched = true
	case len(o.batches) > 0:
		counts := make(map[string]float64, len(o.batches))
		for id, raw := range o.batches {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid count for batch %s: %w", id, err)
			}
			counts[id] = v
		}
		details.BatchCounts = counts
		input.FromBatches = len(args) == 1
		touched = true
	}

	if o.reverseCartons > 0 {
		units, loose, err := counting.ReverseCarton(int(input.ObservedQty), o.reverseCartons)
		if err != nil {
			return nil, err
		}
		details.CartonConfig = &model.CartonConfig{
			CartonCount:    float64(o.reverseCartons),
			UnitsPerCarton: float64(units),
			IsCartonBased:  true,
		}
		if loose > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "%d loose unit(s) outside cartons\n", loose)
		}
		touched = true
	}

	if cmd.Flags().Changed("mrp") {
		verified := true
		details.MRP = &o.mrp
		details.MRPVerified = &verified
		touched = true
	}
	if cmd.Flags().Changed("damaged") {
		damaged := o.damaged > 0
		details.IsDamaged = &damaged
		details.DamagedQty = &o.damaged
		touched = true
	}
	if len(o.serials) > 0 {
		serialized := true
		details.IsSerialized = &serialized
		details.SerialList = o.serials
		touched = true
	}
	if o.narration != "" {
		details.Narration = &o.narration
		touched = true
	}

	if touched {
		input.Details = details
	}
	return input, nil
}

func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <sku>",
		Short: "Add an item found on the shelf but missing from the snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, func(ctx context.Context, a *app) error {
				item, err := a.engine.AddItem(ctx, args[0])
				if err != nil {
					return err
				}
				if rootOpts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), item)
				}
				printItem(cmd.OutOrStdout(), *item)
				return nil
			})
		},
	}
}

func NewRefreshCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <sku>",
		Short: "Fetch the live system quantity for an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), rootOpts, func(ctx context.Context, a *app) error {
				if err := a.engine.RefreshSystemQty(ctx, args[0]); err != nil {
					if errors.Is(err, stocktake.ErrJitSyncFailed) {
						a.metrics.JitFailed()
					}
					return err
				}
				for _, it := range a.engine.State().Items {
					if it.SKU == args[0] {
						printItem(cmd.OutOrStdout(), it)
					}
				}
				return nil
			})
		},
	}
}
