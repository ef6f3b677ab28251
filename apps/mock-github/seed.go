package main

// seedRepos populates the store with the repositories used for local runs.
// Called before the server accepts requests.
func seedRepos(s *store) {
	s.put("acme/handbook", &repo{
		DefaultBranch: "main",
		Files: map[string][]byte{
			"README.md":                    []byte(handbookReadme),
			"docs/getting-started.md":      []byte("# Getting started\n\nClone the repo and run `make dev`.\n"),
			"docs/guides/deploy.md":        []byte("# Deploying\n\n1. Tag a release.\n2. Watch the pipeline.\n"),
			"docs/guides/Rollback.md":      []byte("# Rolling back\n\nRevert the tag and redeploy.\n"),
			"docs/images/architecture.png": {0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a},
			"docs/api/reference.MD":        []byte("# API reference\n\n| Method | Path |\n|---|---|\n| GET | /health |\n"),
			"scripts/setup.sh":             []byte("#!/bin/sh\necho setup\n"),
			"notes/todo.txt":               []byte("write more docs\n"),
			"My Notes/C# tips.md":          []byte("# C# tips\n\nPaths with spaces and hashes must be escaped.\n"),
			"broken/binary.md":             {0xff, 0xfe, 0x00, 0x41},
		},
	})

	s.put("acme/engineering-blog", &repo{
		DefaultBranch: "trunk",
		Files: map[string][]byte{
			"posts/2026/01-hello.md":    []byte("# Hello\n\nFirst post.\n"),
			"posts/2026/02-caching.md":  []byte("# Caching\n\nRaw bodies are cached by address.\n"),
			"posts/drafts/untitled.txt": []byte("nothing yet\n"),
			"index.md":                  []byte("# Engineering blog\n"),
		},
	})

	s.put("acme/empty", &repo{DefaultBranch: "main"})

	s.put("acme/throttled", &repo{DefaultBranch: "main", Throttled: true})
}

const handbookReadme = `# Acme handbook

Start with [getting started](docs/getting-started.md), then read the
[deployment guide](docs/guides/deploy.md).
`
