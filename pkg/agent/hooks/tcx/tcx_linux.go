//go:build linux

package tcx

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"github.com/cilium/ebpf/rlimit"
	"github.com/vishvananda/netlink"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"go.keploy.io/tcxchain/config"
	"go.keploy.io/tcxchain/pkg/agent/routes"
	"go.keploy.io/tcxchain/pkg/models"
	"go.keploy.io/tcxchain/utils"
)

// collection is the part of a loaded *ebpf.Collection the orchestrator uses.
type collection interface {
	Program(name string) *ebpf.Program
	Map(name string) *ebpf.Map
	Close()
}

type kernelCollection struct {
	*ebpf.Collection
}

func (c kernelCollection) Program(name string) *ebpf.Program { return c.Programs[name] }

func (c kernelCollection) Map(name string) *ebpf.Map { return c.Maps[name] }

type attachment struct {
	instance models.InstanceSpec
	link     link.Link
}

// Orchestrator owns the loaded classifiers and their TCX links.
type Orchestrator struct {
	logger    *zap.Logger
	cfg       *config.Config
	metrics   *Metrics
	instances []models.InstanceSpec

	removeMemlock func() error
	loadSpec      func() (*ebpf.CollectionSpec, error)
	newCollection func(*ebpf.CollectionSpec) (collection, error)
	ifindex       func(name string) (int, error)
	attach        func(link.TCXOptions) (link.Link, error)

	coll  collection
	links []attachment
}

func New(logger *zap.Logger, cfg *config.Config, metrics *Metrics) (*Orchestrator, error) {
	instances, err := cfg.InstanceSpecs()
	if err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	o := &Orchestrator{
		logger:        logger,
		cfg:           cfg,
		metrics:       metrics,
		instances:     instances,
		removeMemlock: rlimit.RemoveMemlock,
		ifindex:       linkIndex,
		attach:        link.AttachTCX,
	}
	o.loadSpec = o.collectionSpec
	o.newCollection = func(spec *ebpf.CollectionSpec) (collection, error) {
		coll, err := ebpf.NewCollection(spec)
		if err != nil {
			return nil, err
		}
		return kernelCollection{coll}, nil
	}
	return o, nil
}

func linkIndex(name string) (int, error) {
	l, err := netlink.LinkByName(name)
	if err != nil {
		return 0, err
	}
	return l.Attrs().Index, nil
}

// collectionSpec returns the bytecode image: an ELF object when one is
// configured, the assembled classifiers otherwise.
func (o *Orchestrator) collectionSpec() (*ebpf.CollectionSpec, error) {
	if o.cfg.ObjectPath != "" {
		return ebpf.LoadCollectionSpec(o.cfg.ObjectPath)
	}
	return NewCollectionSpec(o.instances, o.cfg.RingBufSize)
}

// Load brings up the whole chain or nothing: any error releases what was
// already loaded and attached.
func (o *Orchestrator) Load(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			if cerr := o.Close(); cerr != nil {
				o.logger.Debug("failed to release classifiers after a failed load", zap.Error(cerr))
			}
		}
	}()

	// Allow the current process to lock memory for eBPF resources.
	if err := o.removeMemlock(); err != nil {
		o.logger.Debug("failed to remove the memlock limit", zap.Error(err))
	}

	spec, err := o.loadSpec()
	if err != nil {
		return fmt.Errorf("failed to load the classifier bytecode: %w", err)
	}
	for _, inst := range o.instances {
		if _, ok := spec.Programs[inst.Program]; !ok {
			return fmt.Errorf("program %q for instance %q not found in the bytecode", inst.Program, inst.Name)
		}
	}

	coll, err := o.newCollection(spec)
	if err != nil {
		var ve *ebpf.VerifierError
		if errors.As(err, &ve) {
			o.logger.Debug("verifier log: ", zap.String("err", strings.Join(ve.Log, "\n")))
		}
		return fmt.Errorf("failed to load the classifiers into the kernel%s: %w", hint(err), err)
	}
	o.coll = coll

	ifindex, err := o.ifindex(o.cfg.Interface)
	if err != nil {
		return fmt.Errorf("failed to find interface %q: %w", o.cfg.Interface, err)
	}

	for _, inst := range o.instances {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.attachInstance(ifindex, inst); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) attachInstance(ifindex int, inst models.InstanceSpec) error {
	prog := o.coll.Program(inst.Program)
	if prog == nil {
		return fmt.Errorf("program %q for instance %q not found in the loaded collection", inst.Program, inst.Name)
	}
	anchor, err := o.anchor(inst.Order)
	if err != nil {
		return fmt.Errorf("instance %q: %w", inst.Name, err)
	}
	l, err := o.attach(link.TCXOptions{
		Interface: ifindex,
		Program:   prog,
		Attach:    ebpf.AttachTCXIngress,
		Anchor:    anchor,
	})
	if err != nil {
		return fmt.Errorf("failed to attach instance %q to %s ingress with order %s%s: %w", inst.Name, o.cfg.Interface, inst.Order, hint(err), err)
	}
	o.links = append(o.links, attachment{instance: inst, link: l})
	o.metrics.setAttached(inst, true)
	o.logger.Debug("attached classifier", zap.String("instance", inst.Name), zap.Stringer("order", inst.Order), zap.String("iface", o.cfg.Interface))
	return nil
}

// hint names the usual cause of a kernel error returned while loading or
// attaching, or is empty when there is nothing useful to add.
func hint(err error) string {
	switch {
	case errors.Is(err, unix.EPERM), errors.Is(err, unix.EACCES):
		return " (CAP_BPF and CAP_NET_ADMIN are required)"
	case errors.Is(err, unix.EEXIST):
		return " (the program is already attached to this hook)"
	case errors.Is(err, unix.ENODEV), errors.Is(err, unix.ENXIO):
		return " (the interface is gone)"
	case errors.Is(err, unix.ENOENT):
		return " (the anchor link is no longer attached)"
	case errors.Is(err, ebpf.ErrNotSupported):
		return " (TCX needs Linux 6.6 or newer)"
	}
	return ""
}

// anchor maps an attach order onto the TCX anchor sent with the attach call.
// Relative orders point at the link of an instance attached earlier.
func (o *Orchestrator) anchor(order models.Order) (link.Anchor, error) {
	switch order.Kind {
	case models.OrderFirst:
		return link.Head(), nil
	case models.OrderLast:
		return link.Tail(), nil
	case models.OrderBefore, models.OrderAfter:
		for _, a := range o.links {
			if a.instance.Name != order.Peer {
				continue
			}
			if order.Kind == models.OrderBefore {
				return link.BeforeLink(a.link), nil
			}
			return link.AfterLink(a.link), nil
		}
		return nil, fmt.Errorf("peer %q of order %s is not attached", order.Peer, order)
	}
	return nil, fmt.Errorf("%w: %v", models.ErrInvalidOrder, order)
}

// Run loads and attaches the chain, reports diagnostics until ctx is done
// and then releases everything.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.Load(ctx); err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			o.logger.Info("interrupted before the chain was attached, exiting...")
			return nil
		}
		return err
	}
	defer func() {
		if err := o.Close(); err != nil {
			utils.LogError(o.logger, err, "failed to release the classifiers")
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	if events := o.coll.Map(EventsMap); events != nil {
		diags, err := WatchDiagnostics(gctx, o.logger, events, instanceNames(o.instances))
		if err != nil {
			return fmt.Errorf("failed to open the diagnostics ring buffer: %w", err)
		}
		g.Go(func() error {
			defer utils.Recover(o.logger)
			for d := range diags {
				o.report(d)
			}
			return nil
		})
	} else {
		o.logger.Warn("bytecode has no diagnostics ring buffer, matches will not be reported", zap.String("map", EventsMap))
	}

	if o.cfg.MetricsAddr != "" {
		g.Go(func() error {
			defer utils.Recover(o.logger)
			return routes.StartMetricsServer(gctx, o.logger, o.cfg.MetricsAddr, o.metrics.Registry())
		})
	}

	o.logger.Info("classifiers attached, waiting for signal to exit...", zap.String("iface", o.cfg.Interface), zap.Strings("chain", o.chain()))
	<-gctx.Done()
	err := g.Wait()
	o.logger.Info("exiting...")
	return err
}

func (o *Orchestrator) report(d models.Diagnostic) {
	o.metrics.observe(d)
	o.logger.Info("received a packet",
		zap.String("instance", d.Instance),
		zap.Uint32("ifindex", d.Ifindex),
		zap.Uint32("len", d.Length),
		zap.Stringer("src", d.Src),
		zap.Stringer("dst", d.Dst),
	)
}

func (o *Orchestrator) chain() []string {
	names := make([]string, 0, len(o.links))
	for _, a := range o.links {
		names = append(names, a.instance.Name+"("+a.instance.Order.String()+")")
	}
	return names
}

// Close detaches every classifier and unloads the collection.
func (o *Orchestrator) Close() error {
	var errs []error
	for i := len(o.links) - 1; i >= 0; i-- {
		a := o.links[i]
		if err := a.link.Close(); err != nil {
			errs = append(errs, fmt.Errorf("instance %q: %w", a.instance.Name, err))
		}
		o.metrics.setAttached(a.instance, false)
	}
	o.links = nil
	if o.coll != nil {
		o.coll.Close()
		o.coll = nil
	}
	return errors.Join(errs...)
}
