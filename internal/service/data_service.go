package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"branchdesk-server/internal/domain"
	"branchdesk-server/internal/metrics"
	"branchdesk-server/internal/repository"
	"branchdesk-server/pkg/sanitize"
)

// Unsubscribe detaches a live subscription. It never blocks on the consumer.
type Unsubscribe func()

// Upload is a binary submitted by a client.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// DataService translates domain operations into gateway calls. It owns the
// sanitize step and timestamp stamping.
type DataService struct {
	gateway     repository.Gateway
	objects     repository.ObjectStorage
	stockSource string
	httpClient  *http.Client
	now         func() time.Time
}

func NewDataService(gateway repository.Gateway, objects repository.ObjectStorage, stockSource string) *DataService {
	return &DataService{
		gateway:     gateway,
		objects:     objects,
		stockSource: stockSource,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		now:         time.Now,
	}
}

// SetClock replaces the time source used for timestamps.
func (s *DataService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *DataService) Now() time.Time {
	return s.now()
}

func (s *DataService) Add(ctx context.Context, c domain.Collection, fields sanitize.Fields) (string, error) {
	doc := sanitize.Merge(fields, sanitize.Fields{domain.FieldCreatedAt: s.now()})

	id, err := s.gateway.Add(ctx, c, doc)
	metrics.StoreOperations.WithLabelValues(string(c), "add", metrics.Result(err)).Inc()
	if err != nil {
		log.Printf("[Store] error saving to %s: %v", c, err)
		return "", &PersistenceError{Op: "add", Collection: c, Err: err}
	}

	log.Printf("[Store] created %s/%s", c, id)
	return id, nil
}

func (s *DataService) Update(ctx context.Context, c domain.Collection, id string, fields sanitize.Fields) error {
	doc := sanitize.Merge(fields, sanitize.Fields{domain.FieldUpdatedAt: s.now()})

	err := s.gateway.Update(ctx, c, id, doc)
	metrics.StoreOperations.WithLabelValues(string(c), "update", metrics.Result(err)).Inc()
	if err != nil {
		log.Printf("[Store] error updating %s/%s: %v", c, id, err)
		return &PersistenceError{Op: "update", Collection: c, ID: id, Err: err}
	}

	return nil
}

func (s *DataService) Delete(ctx context.Context, c domain.Collection, id string) error {
	err := s.gateway.Delete(ctx, c, id)
	metrics.StoreOperations.WithLabelValues(string(c), "delete", metrics.Result(err)).Inc()
	if err != nil {
		log.Printf("[Store] error deleting %s/%s: %v", c, id, err)
		return &PersistenceError{Op: "delete", Collection: c, ID: id, Err: err}
	}

	return nil
}

// Get reads one document and decodes it into its typed variant.
func (s *DataService) Get(ctx context.Context, c domain.Collection, id string) (domain.Record, error) {
	doc, err := s.gateway.Get(ctx, c, id)
	metrics.StoreOperations.WithLabelValues(string(c), "get", metrics.Result(err)).Inc()
	if err != nil {
		return nil, &PersistenceError{Op: "get", Collection: c, ID: id, Err: err}
	}

	rec, err := domain.DecodeRecord(c, doc)
	if err != nil {
		return nil, &PersistenceError{Op: "decode", Collection: c, ID: id, Err: err}
	}
	return rec, nil
}

// List performs a one-shot read of c in store order (creation descending).
func (s *DataService) List(ctx context.Context, c domain.Collection) ([]domain.Record, error) {
	docs, err := s.gateway.GetAll(ctx, c)
	metrics.StoreOperations.WithLabelValues(string(c), "list", metrics.Result(err)).Inc()
	if err != nil {
		return nil, &PersistenceError{Op: "list", Collection: c, Err: err}
	}

	records := decodeAll(c, docs)
	sortByCreatedDesc(records)
	return records, nil
}

// Subscribe registers a live query on c ordered descending by orderField.
// onSnapshot receives the entire decoded result set on attach and after every
// change. Subscription errors are logged and the callback is not invoked
// until the store recovers.
func (s *DataService) Subscribe(ctx context.Context, c domain.Collection, orderField string, onSnapshot func([]domain.Record)) (Unsubscribe, error) {
	feed, err := s.gateway.Subscribe(ctx, c, orderField)
	if err != nil {
		return nil, &PersistenceError{Op: "subscribe", Collection: c, Err: err}
	}

	metrics.ActiveSubscriptions.WithLabelValues(string(c)).Inc()

	go func() {
		defer metrics.ActiveSubscriptions.WithLabelValues(string(c)).Dec()

		for ev := range feed.Events() {
			if ev.Err != nil {
				metrics.SubscriptionErrors.WithLabelValues(string(c)).Inc()
				log.Printf("[Store] permission or connection error on %s: %v", c, ev.Err)
				continue
			}
			metrics.SnapshotsDelivered.WithLabelValues(string(c)).Inc()
			onSnapshot(decodeAll(c, ev.Docs))
		}
	}()

	return Unsubscribe(feed.Close), nil
}

// UploadImage stores a photo under folder and returns its download URL.
func (s *DataService) UploadImage(ctx context.Context, file Upload, folder string) (string, error) {
	name := fmt.Sprintf("%d_%s", s.now().UnixMilli(), SafeFilename(file.Filename))
	path := strings.Trim(folder, "/") + "/" + name

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ref, err := s.objects.Upload(ctx, path, contentType, file.Body)
	if err != nil {
		metrics.Uploads.WithLabelValues("error").Inc()
		return "", &UploadError{Path: path, Err: err}
	}

	url, err := s.objects.DownloadURL(ctx, ref)
	if err != nil {
		metrics.Uploads.WithLabelValues("error").Inc()
		return "", &UploadError{Path: path, Err: err}
	}

	metrics.Uploads.WithLabelValues("ok").Inc()
	log.Printf("[Store] uploaded %s (%d bytes)", path, ref.Size)
	return url, nil
}

// FetchStockList loads the static stock catalog. A missing or unreadable
// catalog yields an empty list.
func (s *DataService) FetchStockList(ctx context.Context) []string {
	if s.stockSource == "" {
		return []string{}
	}

	var body io.ReadCloser
	if strings.HasPrefix(s.stockSource, "http://") || strings.HasPrefix(s.stockSource, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.stockSource, nil)
		if err != nil {
			return []string{}
		}
		resp, err := s.httpClient.Do(req)
		if err != nil {
			log.Printf("[Stock] catalog unavailable: %v", err)
			return []string{}
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			log.Printf("[Stock] catalog unavailable: status %d", resp.StatusCode)
			return []string{}
		}
		body = resp.Body
	} else {
		f, err := os.Open(s.stockSource)
		if err != nil {
			log.Printf("[Stock] no local catalog at %s", s.stockSource)
			return []string{}
		}
		body = f
	}
	defer body.Close()

	var catalog struct {
		Items []string `json:"items"`
	}
	if err := json.NewDecoder(body).Decode(&catalog); err != nil {
		log.Printf("[Stock] unreadable catalog: %v", err)
		return []string{}
	}
	if catalog.Items == nil {
		return []string{}
	}
	return catalog.Items
}

// GenerateBackup snapshots every collection. A collection that cannot be
// read maps to an empty list; the others are still exported.
func (s *DataService) GenerateBackup(ctx context.Context) domain.Backup {
	backup := make(domain.Backup, len(domain.Collections))

	for _, c := range domain.Collections {
		docs, err := s.gateway.GetAll(ctx, c)
		metrics.StoreOperations.WithLabelValues(string(c), "backup", metrics.Result(err)).Inc()
		if err != nil {
			log.Printf("[Backup] could not export %s: %v", c, err)
			backup[string(c)] = []map[string]interface{}{}
			continue
		}

		rows := make([]map[string]interface{}, 0, len(docs))
		for _, doc := range docs {
			rows = append(rows, doc.Flatten())
		}
		backup[string(c)] = rows
	}

	return backup
}

// BackupFilename names an export taken at t.
func BackupFilename(t time.Time) string {
	return fmt.Sprintf("backup-%s.json", t.Format("2006-01-02"))
}

// SafeFilename replaces every character that is not an ASCII letter or digit
// with an underscore.
func SafeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}

func decodeAll(c domain.Collection, docs []domain.Document) []domain.Record {
	records := make([]domain.Record, 0, len(docs))
	for _, doc := range docs {
		rec, err := domain.DecodeRecord(c, doc)
		if err != nil {
			log.Printf("[Store] skipping %v", err)
			continue
		}
		records = append(records, rec)
	}
	return records
}

func sortByCreatedDesc(records []domain.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Created().After(records[j].Created())
	})
}
