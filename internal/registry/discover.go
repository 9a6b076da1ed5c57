package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/sirupsen/logrus"
)

const (
	addonManifestName = "addon.json"
	assetManifestName = "manifest.json"

	// CategoryAddon tags discovered addon entries.
	CategoryAddon = "addon"
)

//go:embed schema/addon.schema.json
var addonSchemaData []byte

//go:embed schema/asset.schema.json
var assetSchemaData []byte

var (
	schemaOnce  sync.Once
	addonSchema *jsonschema.Schema
	assetSchema *jsonschema.Schema
)

func compileSchemas() {
	schemaOnce.Do(func() {
		addonSchema = mustCompile("addon.schema.json", addonSchemaData)
		assetSchema = mustCompile("asset.schema.json", assetSchemaData)
	})
}

func mustCompile(name string, data []byte) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(string(data))); err != nil {
		panic(fmt.Sprintf("embedded schema %s: %v", name, err))
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("embedded schema %s: %v", name, err))
	}
	return schema
}

// readManifest loads and schema-validates a manifest file. Manifests are
// untrusted input: any read, parse, or validation failure is returned for
// the caller to log, never propagated as fatal.
func readManifest(path string, schema *jsonschema.Schema) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var meta map[string]interface{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	// jsonschema validates generic JSON values, so re-decode through
	// interface{} to normalize numbers.
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	if err := schema.Validate(generic); err != nil {
		return nil, err
	}
	return meta, nil
}

// DiscoverAddons walks the immediate subdirectories of the addons root and
// produces one entry per valid addon manifest. A missing or unparsable
// manifest, or a declared executable that does not exist, skips that addon
// with a warning; discovery never aborts on a single bad entry.
func DiscoverAddons(addonsRoot string, logger *logrus.Entry) []Entry {
	compileSchemas()
	logger.WithField("root", addonsRoot).Info("Discovering addons")

	dirEntries, err := os.ReadDir(addonsRoot)
	if err != nil {
		logger.WithError(err).Warn("Addons root not found or unreadable")
		return nil
	}

	var entries []Entry
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		addonDir := filepath.Join(addonsRoot, de.Name())
		manifestPath := filepath.Join(addonDir, addonManifestName)

		meta, err := readManifest(manifestPath, addonSchema)
		if err != nil {
			logger.WithError(err).WithField("manifest", manifestPath).Warn("Skipping addon with bad manifest")
			continue
		}

		exePath := ""
		if rel, ok := meta["exe_path"].(string); ok && rel != "" {
			abs := rel
			if !filepath.IsAbs(abs) {
				abs = filepath.Join(addonDir, rel)
			}
			if _, err := os.Stat(abs); err != nil {
				logger.WithFields(logrus.Fields{
					"addon":    stringField(meta, "name"),
					"exe_path": abs,
				}).Warn("Skipping addon whose executable does not exist")
				continue
			}
			exePath = abs
			meta["exe_path"] = abs
		} else {
			logger.WithField("addon", addonDir).Warn("Addon manifest has no exe_path")
		}

		logger.WithField("addon", stringField(meta, "name")).Info("Discovered addon")
		entries = append(entries, Entry{
			ID:       stringField(meta, "id"),
			Category: CategoryAddon,
			Subtype:  de.Name(),
			Metadata: meta,
			Path:     addonDir,
			ExePath:  exePath,
		})
	}
	return entries
}

// DiscoverAssets walks the assets root one level per category directory,
// then up to two levels deeper looking for manifest files, producing one
// entry per manifest. Parse failures are logged and the entry omitted.
func DiscoverAssets(assetsRoot string, logger *logrus.Entry) []Entry {
	compileSchemas()
	logger.WithField("root", assetsRoot).Info("Discovering assets")

	categories, err := os.ReadDir(assetsRoot)
	if err != nil {
		logger.WithError(err).Warn("Assets root not found or unreadable")
		return nil
	}

	var entries []Entry
	for _, cat := range categories {
		if !cat.IsDir() {
			continue
		}
		categoryName := cat.Name()
		categoryPath := filepath.Join(assetsRoot, categoryName)

		for _, manifestPath := range findAssetManifests(categoryPath, 2) {
			meta, err := readManifest(manifestPath, assetSchema)
			if err != nil {
				logger.WithError(err).WithField("manifest", manifestPath).Warn("Skipping asset with bad manifest")
				continue
			}

			assetDir := filepath.Dir(manifestPath)
			exePath := ""
			if rel, ok := meta["exe_path"].(string); ok && rel != "" {
				abs := rel
				if !filepath.IsAbs(abs) {
					abs = filepath.Join(assetDir, rel)
				}
				if _, err := os.Stat(abs); err != nil {
					logger.WithFields(logrus.Fields{
						"asset":    stringField(meta, "id"),
						"exe_path": abs,
					}).Warn("Asset exe path does not exist")
				}
				exePath = abs
				meta["exe_path"] = abs
			}

			logger.WithFields(logrus.Fields{
				"asset":    stringField(meta, "id"),
				"category": categoryName,
			}).Info("Discovered asset")
			entries = append(entries, Entry{
				ID:       stringField(meta, "id"),
				Category: categoryName,
				Subtype:  filepath.Base(assetDir),
				Metadata: meta,
				Path:     assetDir,
				ExePath:  exePath,
			})
		}
	}
	return entries
}

// findAssetManifests returns manifest files up to maxDepth levels below
// root, in walk order.
func findAssetManifests(root string, maxDepth int) []string {
	var found []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		depth := len(strings.Split(rel, string(filepath.Separator)))
		if d.IsDir() {
			if depth >= maxDepth {
				return fs.SkipDir
			}
			return nil
		}
		if depth <= maxDepth && d.Name() == assetManifestName {
			found = append(found, path)
		}
		return nil
	})
	return found
}

func stringField(meta map[string]interface{}, key string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}
