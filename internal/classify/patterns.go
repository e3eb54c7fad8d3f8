package classify

import (
	"github.com/lakshaymaurya-felt/sweep/internal/core"
)

// defaultProtected are name patterns for secrets that must never be deleted.
// Patterns without a slash match any path component, so everything beneath
// a matching directory is protected too.
var defaultProtected = []string{
	".env",
	".env.*",
	"*.key",
	"*.pem",
	"*.crt",
	"*.cer",
	"*.p12",
	"*.pfx",
	"*.jks",
	"*.keystore",
	"*.kdbx",
	"id_rsa*",
	"id_dsa*",
	"id_ecdsa*",
	"id_ed25519*",
	"credentials*",
	"secrets*",
	".netrc",
	".npmrc",
	".pypirc",
	".git",
	".ssh",
	".gnupg",
}

// defaultTestData are naming heuristics for test fixtures and sample data.
var defaultTestData = []string{
	"fixture*",
	"__fixtures__",
	"test-data*",
	"test_data*",
	"testdata",
	"mock*",
	"__mocks__",
	"sample*",
	"*.spec.*",
	"*.test.*",
	"*_test.*",
	"*_spec.*",
}

// extensionTypes maps lower-case extensions (without the dot) to file types.
var extensionTypes = map[string]core.FileType{
	// Databases
	"db": core.TypeDatabase, "sqlite": core.TypeDatabase, "sqlite3": core.TypeDatabase,
	"sql": core.TypeDatabase, "dump": core.TypeDatabase, "mdb": core.TypeDatabase,
	"accdb": core.TypeDatabase, "ldb": core.TypeDatabase,

	// Archives and disk images
	"zip": core.TypeArchive, "tar": core.TypeArchive, "gz": core.TypeArchive,
	"tgz": core.TypeArchive, "bz2": core.TypeArchive, "xz": core.TypeArchive,
	"zst": core.TypeArchive, "rar": core.TypeArchive, "7z": core.TypeArchive,
	"iso": core.TypeArchive, "dmg": core.TypeArchive, "img": core.TypeArchive,

	// Media
	"jpg": core.TypeMedia, "jpeg": core.TypeMedia, "png": core.TypeMedia,
	"gif": core.TypeMedia, "bmp": core.TypeMedia, "webp": core.TypeMedia,
	"tiff": core.TypeMedia, "heic": core.TypeMedia, "raw": core.TypeMedia,
	"mp4": core.TypeMedia, "mkv": core.TypeMedia, "avi": core.TypeMedia,
	"mov": core.TypeMedia, "webm": core.TypeMedia, "wmv": core.TypeMedia,
	"mp3": core.TypeMedia, "wav": core.TypeMedia, "flac": core.TypeMedia,
	"ogg": core.TypeMedia, "m4a": core.TypeMedia, "aac": core.TypeMedia,

	// Logs
	"log": core.TypeLog, "out": core.TypeLog, "err": core.TypeLog, "trace": core.TypeLog,

	// Documents
	"pdf": core.TypeDocument, "doc": core.TypeDocument, "docx": core.TypeDocument,
	"xls": core.TypeDocument, "xlsx": core.TypeDocument, "ppt": core.TypeDocument,
	"pptx": core.TypeDocument, "odt": core.TypeDocument, "txt": core.TypeDocument,
	"md": core.TypeDocument, "rtf": core.TypeDocument, "csv": core.TypeDocument,

	// Source
	"go": core.TypeSource, "rs": core.TypeSource, "py": core.TypeSource,
	"js": core.TypeSource, "ts": core.TypeSource, "jsx": core.TypeSource,
	"tsx": core.TypeSource, "java": core.TypeSource, "kt": core.TypeSource,
	"c": core.TypeSource, "h": core.TypeSource, "cpp": core.TypeSource,
	"hpp": core.TypeSource, "cs": core.TypeSource, "rb": core.TypeSource,
	"php": core.TypeSource, "swift": core.TypeSource, "scala": core.TypeSource,
	"sh": core.TypeSource, "ps1": core.TypeSource,

	// Config
	"json": core.TypeConfig, "yaml": core.TypeConfig, "yml": core.TypeConfig,
	"toml": core.TypeConfig, "ini": core.TypeConfig, "cfg": core.TypeConfig,
	"conf": core.TypeConfig, "xml": core.TypeConfig, "properties": core.TypeConfig,

	// Binaries
	"exe": core.TypeBinary, "dll": core.TypeBinary, "so": core.TypeBinary,
	"dylib": core.TypeBinary, "o": core.TypeBinary, "a": core.TypeBinary,
	"lib": core.TypeBinary, "wasm": core.TypeBinary, "msi": core.TypeBinary,
	"class": core.TypeBinary, "jar": core.TypeBinary,

	// Regenerable leftovers
	"tmp": core.TypeArtifact, "temp": core.TypeArtifact, "bak": core.TypeArtifact,
	"swp": core.TypeArtifact, "cache": core.TypeArtifact, "pyc": core.TypeArtifact,
	"dmp": core.TypeArtifact,
}

// mimeTypes maps sniffed MIME types to file types. Lookups walk the
// detected type's parents, so specific entries win over generic ones.
var mimeTypes = map[string]core.FileType{
	"application/vnd.sqlite3": core.TypeDatabase,
	"application/x-sqlite3":   core.TypeDatabase,

	"application/x-elf":                             core.TypeBinary,
	"application/x-executable":                      core.TypeBinary,
	"application/x-sharedlib":                       core.TypeBinary,
	"application/x-object":                          core.TypeBinary,
	"application/x-mach-binary":                     core.TypeBinary,
	"application/vnd.microsoft.portable-executable": core.TypeBinary,
	"application/wasm":                              core.TypeBinary,
	"application/x-java-applet":                     core.TypeBinary,

	"application/zip":               core.TypeArchive,
	"application/gzip":              core.TypeArchive,
	"application/x-tar":             core.TypeArchive,
	"application/x-7z-compressed":   core.TypeArchive,
	"application/x-xz":              core.TypeArchive,
	"application/x-bzip2":           core.TypeArchive,
	"application/vnd.rar":           core.TypeArchive,
	"application/zstd":              core.TypeArchive,
	"application/x-iso9660-image":   core.TypeArchive,
	"application/x-apple-diskimage": core.TypeArchive,

	"application/pdf": core.TypeDocument,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   core.TypeDocument,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         core.TypeDocument,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": core.TypeDocument,
}
