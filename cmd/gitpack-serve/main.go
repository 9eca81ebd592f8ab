// Command gitpack-serve runs one upload-pack RPC over stdin/stdout,
// the same invocation shape real Git uses for `git-upload-pack`
// under ssh or git:// — whatever established the connection (the
// external WireTransport transport.WireTransport describes) execs
// this binary and wires its own socket to our stdin/stdout.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5/osfs"

	"gitpack/config"
	"gitpack/internal/log"
	"gitpack/policy"
	"gitpack/repository"
	"gitpack/server"
)

func main() {
	var (
		gitDir     = flag.String("git-dir", ".", "path to the repository's .git directory")
		agent      = flag.String("agent", "gitpack/1.0", "agent string advertised to the client")
		policyName = flag.String("policy", "advertised", "want policy: advertised, reachable, or any")
	)
	flag.Parse()

	logger := log.Default

	cfg, err := loadConfig(*gitDir)
	if err != nil {
		logger.Printf("load config: %v", err)
		os.Exit(1)
	}
	_ = cfg // parsed for pack/transfer tuning; consumed by the writer's caller, not this thin entrypoint

	repo := repository.NewDisk(osfs.New(*gitDir), ".")

	pol, err := resolvePolicy(*policyName)
	if err != nil {
		logger.Printf("%v", err)
		os.Exit(1)
	}

	n := server.New(repo, pol, *agent)
	if err := n.Serve(os.Stdout, os.Stdin); err != nil {
		logger.Printf("upload-pack: %v", err)
		os.Exit(1)
	}
}

func resolvePolicy(name string) (policy.WantPolicy, error) {
	switch name {
	case "advertised":
		return policy.Advertised{}, nil
	case "reachable":
		return policy.ReachableCommit{}, nil
	case "any":
		return policy.Any{}, nil
	default:
		return nil, fmt.Errorf("unknown -policy %q (want advertised, reachable, or any)", name)
	}
}

func loadConfig(gitDir string) (config.ServerConfig, error) {
	path := gitDir + "/config"
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return config.Default(), nil
	}
	if err != nil {
		return config.ServerConfig{}, err
	}
	return config.Parse(string(raw))
}
