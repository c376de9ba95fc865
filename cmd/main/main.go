package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"producttracker/watcher/internal/config"
	"producttracker/watcher/internal/container"
	"producttracker/watcher/internal/domain"
	"producttracker/watcher/internal/service"
	"producttracker/watcher/internal/ui"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatalf("Application exited with error: %v", err)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "watcher",
		Usage: "Follow product tracker scraping jobs from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config-dir",
				Usage: "directory holding config.yaml and .env",
				Value: ".",
			},
			&cli.StringFlag{
				Name:  "html-dir",
				Usage: "keep a live copy of each watched job page in this directory",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "watch",
				Usage:     "poll running jobs until they finish",
				ArgsUsage: "<job-id>...",
				Action:    watchAction,
			},
			{
				Name:      "search",
				Usage:     "start a new scraping job",
				ArgsUsage: "<search term>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "pages",
						Usage: fmt.Sprintf("number of result pages to scrape (%d-%d)", domain.MinPages, domain.MaxPages),
						Value: domain.DefaultPages,
					},
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "watch the job once it is running",
					},
				},
				Action: searchAction,
			},
			{
				Name:      "products",
				Usage:     "list the products a job has scraped",
				ArgsUsage: "<job-id>",
				Action:    productsAction,
			},
			{
				Name:      "export",
				Usage:     "download the products of a job as CSV",
				ArgsUsage: "<job-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dir",
						Usage: "directory to write the CSV file to",
						Value: ".",
					},
				},
				Action: exportAction,
			},
			{
				Name:      "delete",
				Usage:     "delete a job and its products",
				ArgsUsage: "<job-id>",
				Action:    deleteAction,
			},
		},
	}
}

func setup(cmd *cli.Command) (*container.Container, error) {
	cfg, err := config.LoadFrom(cmd.String("config-dir"))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if dir := cmd.String("html-dir"); dir != "" {
		cfg.Tracker.SnapshotDir = dir
	}
	if err := config.SetupLogging(cfg.Log); err != nil {
		return nil, err
	}
	log.Debug("Configuration loaded successfully")

	app, err := container.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize container: %w", err)
	}
	return app, nil
}

func watchAction(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("at least one job id is required")
	}

	app, err := setup(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	jobIDs := make([]domain.JobID, 0, len(args))
	for _, arg := range args {
		jobIDs = append(jobIDs, domain.JobID(arg))
	}

	results, err := app.WatchAll(ctx, jobIDs)
	for _, r := range results {
		if r != nil {
			printResult(cmd, r)
		}
	}
	return err
}

func searchAction(ctx context.Context, cmd *cli.Command) error {
	app, err := setup(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	job, err := app.Service.Search(ctx, cmd.Args().First(), int(cmd.Int("pages")))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.Root().Writer, "%s\njob %s: status %s, results %s\n", job.Message, job.JobID, job.StatusURL, job.ResultsURL)

	if !cmd.Bool("watch") {
		return nil
	}

	result, err := app.Service.Watch(ctx, job.JobID)
	if err != nil {
		return err
	}
	printResult(cmd, result)
	return nil
}

func productsAction(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.Args().First()
	if jobID == "" {
		return fmt.Errorf("a job id is required")
	}

	app, err := setup(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	products, err := app.Service.Products(ctx, domain.JobID(jobID))
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	for _, p := range products {
		price := "-"
		if p.Price != nil {
			price = *p.Price
		}
		reviews := 0
		if p.ReviewCount != nil {
			reviews = *p.ReviewCount
		}
		fmt.Fprintf(out, "%-60.60s %10s %8s reviews\n", p.Title, price, ui.FormatNumber(reviews))
	}
	fmt.Fprintf(out, "%d products\n", len(products))
	return nil
}

func exportAction(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.Args().First()
	if jobID == "" {
		return fmt.Errorf("a job id is required")
	}

	app, err := setup(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	path, err := app.Service.Export(ctx, domain.JobID(jobID), cmd.String("dir"))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.Root().Writer, "job %s exported to %s\n", jobID, path)
	return nil
}

func deleteAction(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.Args().First()
	if jobID == "" {
		return fmt.Errorf("a job id is required")
	}

	app, err := setup(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.DeleteJob(ctx, domain.JobID(jobID)); err != nil {
		return err
	}

	fmt.Fprintf(cmd.Root().Writer, "job %s deleted\n", jobID)
	return nil
}

func printResult(cmd *cli.Command, r *service.WatchResult) {
	out := cmd.Root().Writer
	switch {
	case r.Final != nil:
		fmt.Fprintf(out, "job %s %s with %s products\n", r.JobID, r.Final.Status, ui.FormatNumber(len(r.Final.Products)))
	case r.InitialStatus == "":
		fmt.Fprintf(out, "job %s: no job status on page\n", r.JobID)
	case !r.Polled:
		fmt.Fprintf(out, "job %s is %s, not polled\n", r.JobID, r.InitialStatus)
	default:
		fmt.Fprintf(out, "job %s stopped before finishing, reload manually\n", r.JobID)
	}
}
