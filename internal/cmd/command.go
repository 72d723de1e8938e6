package cmd

import (
	"github.com/jessevdk/go-flags"
	"github.com/nguyengg/ziploader/internal/config"
)

type Ziploader struct {
	Profile string  `short:"p" long:"profile" description:"override the AWS profile used for s3:// archives"`
	List    List    `command:"list" alias:"ls" description:"list files in archives"`
	Extract Extract `command:"extract" alias:"x" description:"extract archives"`
	Cat     Cat     `command:"cat" description:"print files from an archive to standard output"`
}

func NewParser() (*flags.Parser, error) {
	opts := &Ziploader{}

	p := flags.NewNamedParser("ziploader", flags.Default)
	if _, err := p.AddGroup("Global Options", "", opts); err != nil {
		return nil, err
	}

	p.CommandHandler = func(command flags.Commander, args []string) error {
		if command == nil {
			return nil
		}

		if opts.Profile != "" {
			config.DefaultLoader.Profile = opts.Profile
		}

		return command.Execute(args)
	}

	return p, nil
}
