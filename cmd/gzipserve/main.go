package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/net/websocket"
	"vimagination.zapto.org/httpgzip"
	"vimagination.zapto.org/segio"
)

type paths []string

func (p *paths) String() string {
	return ""
}

func (p *paths) Set(path string) error {
	*p = append(*p, path)

	return nil
}

type serverNames []string

func (s *serverNames) String() string {
	return ""
}

func (s *serverNames) Set(serverName string) error {
	*s = append(*s, serverName)

	return nil
}

var stats struct {
	files    atomic.Int64
	bytesIn  atomic.Int64
	bytesOut atomic.Int64
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		addr  string
		dirs  paths
		names serverNames
	)

	flag.StringVar(&addr, "a", ":8080", "listen address")
	flag.Var(&dirs, "p", "server path")
	flag.Var(&names, "s", "server name(s) for TLS")
	flag.Parse()

	if len(dirs) == 0 {
		return errors.New("no server paths specified")
	}

	fileSystems := make([]http.FileSystem, len(dirs))

	for n, dir := range dirs {
		if err := precompress(dir); err != nil {
			return fmt.Errorf("error compressing %s: %w", dir, err)
		}

		fileSystems[n] = http.Dir(dir)
	}

	http.Handle("/", httpgzip.FileServer(fileSystems[0], fileSystems[1:]...))
	http.Handle("/_status", index)
	http.Handle("/_rpc", websocket.Handler(NewConn))

	server := &http.Server{
		Handler: http.DefaultServeMux,
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("unable to listen on %s: %w", addr, err)
	}

	if len(names) > 0 {
		tl, err := net.Listen("tcp", ":443")
		if err != nil {
			return errors.New("unable to open port 443")
		}

		leManager := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			Cache:      autocert.DirCache("./certcache/"),
			HostPolicy: autocert.HostWhitelist(names...),
		}
		server.Handler = leManager.HTTPHandler(server.Handler)
		server.TLSConfig = &tls.Config{
			GetCertificate: leManager.GetCertificate,
			NextProtos:     []string{"h2", "http/1.1"},
		}

		go server.ServeTLS(tl, "", "")
	}

	go server.Serve(l)

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, os.Interrupt)
	<-sc
	signal.Stop(sc)
	close(sc)

	return server.Shutdown(context.Background())
}

// precompress walks dir, writing a .gz sibling for every regular file
// that doesn't already have a current one, so the file server can
// negotiate compressed responses.
func precompress(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || strings.HasSuffix(path, ".gz") {
			return err
		}

		current, err := gzCurrent(path)
		if err != nil || current {
			return err
		}

		return compressFile(path)
	})
}

// gzCurrent reports whether path has a .gz sibling at least as new as
// itself.
func gzCurrent(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}

	gzInfo, err := os.Stat(path + ".gz")
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}

	return !gzInfo.ModTime().Before(info.ModTime()), nil
}

type countingWriter struct {
	w     io.Writer
	count int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.count += int64(n)

	return n, err
}

func compressFile(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}

	cw := &countingWriter{w: out}
	sink := segio.NewGzipSink(segio.NewSink(cw))
	source := segio.NewSource(in)
	buffer := new(segio.Buffer)

	var read int64

	for {
		n, rerr := source.ReadTo(buffer, segio.SegmentSize)
		if errors.Is(rerr, io.EOF) {
			break
		} else if rerr != nil {
			out.Close()

			return rerr
		}

		read += n

		if err := sink.WriteFrom(buffer, buffer.Size()); err != nil {
			out.Close()

			return err
		}
	}

	if err := sink.Close(); err != nil {
		out.Close()

		return err
	}

	if err := out.Close(); err != nil {
		return err
	}

	stats.files.Add(1)
	stats.bytesIn.Add(read)
	stats.bytesOut.Add(cw.count)

	return nil
}
