package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"kennel/api/grpcserver"
)

func dial(addr string) (*grpc.ClientConn, *grpcserver.Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, err
	}
	return conn, grpcserver.NewClient(conn), nil
}

func makeShowCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print every dog, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, c, err := dial(addr)
			if err != nil {
				return err
			}
			defer conn.Close()

			out, err := c.Show(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:50051", "kennel gRPC address")
	return cmd
}

func makeStoreCmd() *cobra.Command {
	var (
		addr    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:     "store <breed,age,trainable>",
		Short:   "Append a dog",
		Example: "kennel store Golden,3,1",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, c, err := dial(addr)
			if err != nil {
				return err
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			n, err := c.Store(ctx, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:50051", "kennel gRPC address")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	return cmd
}
