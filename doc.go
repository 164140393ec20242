// Package caomtools provides helper utilities for building data-ingestion
// scripts against a CAOM-2 metadata archive.
//
// The root package defines the [Container] abstraction: a named, ordered
// collection of file members that can come from a local directory, an
// explicit file list, a tar archive, or a remote archive directory. All
// four implementations expose the same capability set, so ingestion
// scripts can enumerate and fetch files without caring where they live:
//
//	c, err := caomtools.NewTarContainer("night.tar.gz", workdir)
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//	for _, id := range c.Members() {
//	    err := caomtools.Use(ctx, c, id, func(path string) error {
//	        return ingest(path)
//	    })
//	    if err != nil {
//	        return err
//	    }
//	}
//
// Members are fetched lazily: a tar entry is extracted and a remote file
// is downloaded only when requested, and Use removes the temporary copy
// when the callback returns.
//
// The subpackages wrap the external systems an ingestion script talks to:
//   - [github.com/eaobservatory/caomtools/dataweb]: the archive data web service
//   - [github.com/eaobservatory/caomtools/tap]: ADQL queries via the TAP service
//   - [github.com/eaobservatory/caomtools/repo]: the caom2repo command-line tool
//   - [github.com/eaobservatory/caomtools/database]: the archive metadata database
//   - [github.com/eaobservatory/caomtools/gridengine]: cluster job submission
//   - [github.com/eaobservatory/caomtools/validate]: pre-ingestion file checks
//   - [github.com/eaobservatory/caomtools/config]: shared tool configuration
//   - [github.com/eaobservatory/caomtools/logging]: file-plus-console logging
//   - [github.com/eaobservatory/caomtools/mjd]: Modified Julian Date conversion
//   - [github.com/eaobservatory/caomtools/geolocation]: observatory coordinates
package caomtools
