package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/ctfer-io/covalic/client"
)

type cliKey struct{}

func covalic(ctx context.Context) *client.Client {
	return ctx.Value(cliKey{}).(*client.Client)
}

func main() {
	cmd := &cli.Command{
		Name: "covalic-cli",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "url",
				Sources:  cli.EnvVars("COVALIC_URL"),
				Usage:    "The URL of the Covalic API, e.g. http://localhost:8080/api/v1.",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "token",
				Sources: cli.EnvVars("COVALIC_TOKEN"),
				Usage:   "The token to authenticate with.",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cli := client.New(cmd.String("url"), client.WithToken(cmd.String("token")))
			return context.WithValue(ctx, cliKey{}, cli), nil
		},
		Commands: []*cli.Command{
			{
				Name: "login",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "login", Required: true},
					&cli.StringFlag{Name: "password", Sources: cli.EnvVars("COVALIC_PASSWORD"), Required: true},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					res, err := covalic(ctx).Login(ctx, cmd.String("login"), cmd.String("password"))
					if err != nil {
						return err
					}
					fmt.Println(res.Token)
					return nil
				},
			},
			challengeCommand(),
			phaseCommand(),
			folderCommand(),
			submissionCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "[!] %s\n", err)
		os.Exit(1)
	}
}

func challengeCommand() *cli.Command {
	return &cli.Command{
		Name: "challenge",
		Commands: []*cli.Command{
			{
				Name: "create",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "description"},
					&cli.StringFlag{Name: "organizers"},
					&cli.BoolFlag{Name: "public"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					chall, err := covalic(ctx).CreateChallenge(ctx, client.Params{
						"name":        cmd.String("name"),
						"description": cmd.String("description"),
						"organizers":  cmd.String("organizers"),
						"public":      fmt.Sprint(cmd.Bool("public")),
					})
					if err != nil {
						return err
					}
					fmt.Printf("[+] Challenge %s created\n", chall.ID)
					return nil
				},
			}, {
				Name: "list",
				Action: func(ctx context.Context, _ *cli.Command) error {
					challs, err := covalic(ctx).ListChallenges(ctx)
					if err != nil {
						return err
					}
					for _, chall := range challs {
						fmt.Printf("%s\t%s\n", chall.ID, chall.Name)
					}
					return nil
				},
			}, {
				Name: "delete",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					id := cmd.String("id")
					if err := covalic(ctx).DeleteChallenge(ctx, id); err != nil {
						return err
					}
					fmt.Printf("[-] Challenge %s deleted\n", id)
					return nil
				},
			},
		},
	}
}

func phaseCommand() *cli.Command {
	return &cli.Command{
		Name: "phase",
		Commands: []*cli.Command{
			{
				Name: "create",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "challenge-id", Required: true},
					&cli.StringFlag{Name: "file", Required: true, TakesFile: true, Usage: "The YAML phase definition."},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					f, err := os.Open(cmd.String("file"))
					if err != nil {
						return err
					}
					defer func() { _ = f.Close() }()

					def, err := readPhaseDefinition(f)
					if err != nil {
						return err
					}
					params, err := def.createParams(cmd.String("challenge-id"))
					if err != nil {
						return err
					}
					phase, err := covalic(ctx).CreatePhase(ctx, params)
					if err != nil {
						return err
					}
					fmt.Printf("[+] Phase %s created\n", phase.ID)

					up, err := def.updateParams()
					if err != nil || up == nil {
						return err
					}
					if _, err := covalic(ctx).UpdatePhase(ctx, phase.ID, up); err != nil {
						return err
					}
					fmt.Printf("[~] Phase %s scoring configured\n", phase.ID)
					return nil
				},
			}, {
				Name: "list",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "challenge-id", Required: true},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					phases, err := covalic(ctx).ListPhases(ctx, cmd.String("challenge-id"))
					if err != nil {
						return err
					}
					for _, phase := range phases {
						fmt.Printf("%d\t%s\t%s\tactive=%t\n", phase.Ordinal, phase.ID, phase.Name, phase.Active)
					}
					return nil
				},
			}, {
				Name: "join",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					phase, err := covalic(ctx).JoinPhase(ctx, cmd.String("id"))
					if err != nil {
						return err
					}
					fmt.Printf("[+] Joined phase %s\n", phase.Name)
					return nil
				},
			}, {
				Name: "leaderboard",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
					&cli.IntFlag{Name: "limit", Value: 50},
					&cli.IntFlag{Name: "offset"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					entries, err := covalic(ctx).Leaderboard(ctx, cmd.String("id"), cmd.Int("limit"), cmd.Int("offset"))
					if err != nil {
						return err
					}
					for _, e := range entries {
						score := "-"
						if e.Submission.OverallScore != nil {
							score = fmt.Sprintf("%.4f", *e.Submission.OverallScore)
						}
						fmt.Printf("%d\t%s\t%s\t%s\n", e.Rank, score, e.Submission.CreatorName, e.Submission.Title)
					}
					return nil
				},
			},
		},
	}
}

func folderCommand() *cli.Command {
	return &cli.Command{
		Name: "folder",
		Commands: []*cli.Command{
			{
				Name: "create",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					f, err := covalic(ctx).CreateFolder(ctx, client.Params{"name": cmd.String("name")})
					if err != nil {
						return err
					}
					fmt.Printf("[+] Folder %s created\n", f.ID)
					return nil
				},
			}, {
				Name:      "upload",
				ArgsUsage: "<file>...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					for _, path := range cmd.Args().Slice() {
						if err := upload(ctx, cmd.String("id"), path); err != nil {
							return err
						}
					}
					return nil
				},
			},
		},
	}
}

func upload(ctx context.Context, folderID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	file, err := covalic(ctx).UploadFile(ctx, folderID, filepath.Base(path), f)
	if err != nil {
		return err
	}
	fmt.Printf("[+] File %s uploaded (%d bytes)\n", file.Name, file.Size)
	return nil
}

func submissionCommand() *cli.Command {
	return &cli.Command{
		Name: "submission",
		Commands: []*cli.Command{
			{
				Name: "create",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "phase-id", Required: true},
					&cli.StringFlag{Name: "folder-id", Required: true},
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "organization"},
					&cli.StringFlag{Name: "organization-url"},
					&cli.StringFlag{Name: "documentation-url"},
					&cli.StringFlag{Name: "approach"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					sub, err := covalic(ctx).Submit(ctx, client.Params{
						"phaseId":          cmd.String("phase-id"),
						"folderId":         cmd.String("folder-id"),
						"title":            cmd.String("title"),
						"organization":     cmd.String("organization"),
						"organizationUrl":  cmd.String("organization-url"),
						"documentationUrl": cmd.String("documentation-url"),
						"approach":         cmd.String("approach"),
					})
					if err != nil {
						return err
					}
					fmt.Printf("[+] Submission %s created, scored by job %s\n", sub.ID, sub.JobID)
					return nil
				},
			}, {
				Name: "get",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					sub, err := covalic(ctx).GetSubmission(ctx, cmd.String("id"))
					if err != nil {
						return err
					}
					score := "not scored"
					if sub.OverallScore != nil {
						score = fmt.Sprintf("%.4f", *sub.OverallScore)
					}
					fmt.Printf("%s\t%s\t%s\tlatest=%t\n", sub.ID, sub.Title, score, sub.Latest)
					return nil
				},
			}, {
				Name: "list",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "phase-id", Required: true},
					&cli.StringFlag{Name: "user-id"},
					&cli.BoolFlag{Name: "all", Usage: "If set, lists every submission rather than the latest ones."},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					subs, err := covalic(ctx).ListSubmissions(ctx, client.Params{
						"phaseId": cmd.String("phase-id"),
						"userId":  cmd.String("user-id"),
						"latest":  fmt.Sprint(!cmd.Bool("all")),
					})
					if err != nil {
						return err
					}
					for _, sub := range subs {
						fmt.Printf("%s\t%s\t%s\n", sub.ID, sub.CreatorName, sub.Title)
					}
					return nil
				},
			}, {
				Name: "rescore",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Required: true},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					sub, err := covalic(ctx).Rescore(ctx, cmd.String("id"))
					if err != nil {
						return err
					}
					fmt.Printf("[~] Submission %s rescoring by job %s\n", sub.ID, sub.JobID)
					return nil
				},
			},
		},
	}
}
