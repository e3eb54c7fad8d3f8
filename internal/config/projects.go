package config

// ProjectKind describes one family of projects and the build artifacts it
// leaves behind.
type ProjectKind struct {
	// Name is the plugin name that cleans this kind of project.
	Name string

	// Version of the artifact table.
	Version string

	// Description is a human-readable description.
	Description string

	// Markers are file-name globs whose presence identifies a project root.
	Markers []string

	// Dirs are artifact directory names directly beneath a project root.
	Dirs []string

	// Suffixes match artifact directories beneath a project root by name
	// suffix (e.g., ".egg-info").
	Suffixes []string

	// Recursive are artifact directory names matched at any depth inside a
	// project.
	Recursive []string

	// Protected are name globs that must never be removed with an artifact.
	Protected []string
}

// GetProjectKinds returns the built-in project tables.
func GetProjectKinds() []ProjectKind {
	return []ProjectKind{
		// ── JavaScript / TypeScript ─────────────────────────────
		{
			Name:        "javascript",
			Version:     "1.0.0",
			Description: "Node.js dependencies and bundler output",
			Markers:     []string{"package.json"},
			Dirs: []string{
				"node_modules", ".next", ".nuxt", ".turbo", ".parcel-cache",
				".svelte-kit", ".angular", "coverage",
			},
			Protected: []string{".yarnrc.yml"},
		},

		// ── Python ──────────────────────────────────────────────
		{
			Name:        "python",
			Version:     "1.0.0",
			Description: "Python virtualenvs, caches and build output",
			Markers:     []string{"pyproject.toml", "requirements.txt", "setup.py", "setup.cfg", "Pipfile"},
			Dirs: []string{
				".venv", "venv", ".pytest_cache", ".mypy_cache", ".ruff_cache",
				".tox", "build", "dist",
			},
			Suffixes:  []string{".egg-info"},
			Recursive: []string{"__pycache__"},
			Protected: []string{"pip.conf", "pip.ini"},
		},

		// ── Rust ────────────────────────────────────────────────
		{
			Name:        "rust",
			Version:     "1.0.0",
			Description: "Cargo build output",
			Markers:     []string{"Cargo.toml"},
			Dirs:        []string{"target"},
		},

		// ── Java / Kotlin ───────────────────────────────────────
		{
			Name:        "java",
			Version:     "1.0.0",
			Description: "Maven and Gradle build output",
			Markers:     []string{"pom.xml", "build.gradle", "build.gradle.kts"},
			Dirs:        []string{"target", "build", ".gradle"},
			Protected:   []string{"gradle.properties", "local.properties"},
		},

		// ── .NET ────────────────────────────────────────────────
		{
			Name:        "dotnet",
			Version:     "1.0.0",
			Description: "MSBuild bin and obj output",
			Markers:     []string{"*.csproj", "*.fsproj", "*.vbproj", "*.sln"},
			Dirs:        []string{"bin", "obj"},
			Protected:   []string{"*.pubxml", "*.user"},
		},
	}
}

// GetProjectKind returns the project table with the given name.
func GetProjectKind(name string) (ProjectKind, bool) {
	for _, k := range GetProjectKinds() {
		if k.Name == name {
			return k, true
		}
	}
	return ProjectKind{}, false
}

// ProjectKindNames returns the names of every built-in project table.
func ProjectKindNames() []string {
	kinds := GetProjectKinds()
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, k.Name)
	}
	return names
}
