// Package record keeps a diagnostic record of module resolutions.
//
// A Record maps module names to the outcome of their last resolution: the
// URL that answered, every URL probed on the way, or the error when nothing
// answered. Each entry also carries a fingerprint of the descriptor it was
// resolved from, so a reader can tell a provider outage apart from an edited
// module.
//
// A Record is never consulted to answer a resolution. Modules are always
// probed; the record only describes what happened, and Diff reports how a
// run differs from the previous one.
//
// # Usage
//
// Wrap a resolver:
//
//	prev, err := record.ReadOrNew(record.DefaultPath)
//	if err != nil {
//	    return err
//	}
//	rec := record.NewRecorder(client.Resolver())
//	m, err := cdnmod.BuildImportMap(ctx, rec, modules, 0)
//	for _, c := range record.Diff(prev, rec.Record()) {
//	    fmt.Println(c)
//	}
//	_ = prev.Merge(rec.Record(), record.MergePreferNew)
//	err = prev.WriteFile(record.DefaultPath)
//
// # Format
//
// The file is JSON with sorted keys:
//
//	{
//	  "recordVersion": 1,
//	  "modules": {
//	    "react": {
//	      "url": "https://unpkg.com/react@18.3.1/umd/react.production.min.js",
//	      "tried": [
//	        "https://unpkg.com/react@18.3.1/react.production.min.js",
//	        "https://unpkg.com/react@18.3.1/umd/react.production.min.js"
//	      ],
//	      "fingerprint": "sha256:..."
//	    }
//	  }
//	}
package record
