package module

import (
	"github.com/inetmodule/cw2wasm/classloader"
)

// Finalize implements spec.md §4.4's "prepareFinish": drain the scan
// worklist, write import declarations and function-type entries for
// every needed function, resolve v-tables (which may discover more
// needed overrides), drain again, then let each manager finalize.
func (g *Generator) Finalize() error {
	if err := g.scanFunctions(); err != nil {
		return err
	}

	imports := g.functions.GetNeededImports()
	for {
		name, ok := imports.Next()
		if !ok {
			break
		}
		g.functions.MarkAsWritten(name)
		annotation, _ := g.functions.ImportAnnotation(name)

		module, _ := annotation["module"].(string)
		if module == "" {
			module = simpleClassName(name.ClassName)
		}
		importName, _ := annotation["name"].(string)
		if importName == "" {
			importName = name.MethodName
		}

		if err := g.writer.PrepareImport(name, map[string]any{"module": module, "name": importName}); err != nil {
			return g.wrapErr(err, -1)
		}
		if err := g.writeMethodSignature(name, nil); err != nil {
			return err
		}
	}

	functions := g.functions.GetNeededFunctions()
	for {
		name, ok := functions.Next()
		if !ok {
			break
		}
		if err := g.writeMethodSignature(name, nil); err != nil {
			return err
		}
	}

	log.Infof("scan finish, resolving v-tables")
	adapter := classloader.TypesAdapter{Loader: g.loader}
	if err := g.types.PrepareFinish(g.writer, g.functions, adapter); err != nil {
		return g.wrapErr(err, -1)
	}

	// type finalization may have marked inherited overrides Needed;
	// drain once more before freezing the managers (spec.md §4.4).
	if err := g.scanFunctions(); err != nil {
		return err
	}

	g.functions.PrepareFinish()
	if err := g.strtab.PrepareFinish(g.writer); err != nil {
		return g.wrapErr(err, -1)
	}
	return g.writer.PrepareFinish()
}
