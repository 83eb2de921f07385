package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoBackend keeps one document per checkpoint name and replaces it on
// every save.
type MongoBackend struct {
	client     *mongo.Client
	collection *mongo.Collection
	name       string
}

// mongoEntry is one key. Product URLs contain dots, so keys are stored as
// list entries rather than field names.
type mongoEntry struct {
	Group    string   `bson:"group"`
	Subgroup string   `bson:"subgroup"`
	Values   []string `bson:"values"`
	Complete bool     `bson:"complete"`
}

type mongoDocument struct {
	ID        string       `bson:"_id"`
	Entries   []mongoEntry `bson:"entries"`
	UpdatedAt time.Time    `bson:"updated_at"`
}

// NewMongoBackend connects to uri and verifies the connection
func NewMongoBackend(ctx context.Context, uri, database, collection, name string) (*MongoBackend, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("can't ping MongoDB: %w", err)
	}

	b := NewMongoBackendFromCollection(client.Database(database).Collection(collection), name)
	b.client = client
	return b, nil
}

// NewMongoBackendFromCollection uses an existing collection handle
func NewMongoBackendFromCollection(coll *mongo.Collection, name string) *MongoBackend {
	return &MongoBackend{collection: coll, name: name}
}

func (b *MongoBackend) Describe() string {
	return fmt.Sprintf("mongo:%s/%s", b.collection.Name(), b.name)
}

func (b *MongoBackend) Load(ctx context.Context) (*State, error) {
	raw, err := b.collection.FindOne(ctx, bson.M{"_id": b.name}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %q: %w", b.name, err)
	}

	var doc mongoDocument
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, b.name, err)
	}
	return fromDocument(doc), nil
}

func (b *MongoBackend) Save(ctx context.Context, state *State) error {
	doc := toDocument(b.name, state)
	_, err := b.collection.ReplaceOne(ctx, bson.M{"_id": b.name}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save checkpoint %q: %w", b.name, err)
	}
	return nil
}

// Close disconnects a client created by NewMongoBackend
func (b *MongoBackend) Close(ctx context.Context) error {
	if b.client == nil {
		return nil
	}
	return b.client.Disconnect(ctx)
}

func toDocument(name string, state *State) mongoDocument {
	done := make(map[string]map[string]bool)
	for group, subs := range state.Completed {
		done[group] = make(map[string]bool, len(subs))
		for _, sub := range subs {
			done[group][sub] = true
		}
	}

	doc := mongoDocument{ID: name, UpdatedAt: state.UpdatedAt, Entries: []mongoEntry{}}
	for group, subs := range state.Results {
		for sub, values := range subs {
			doc.Entries = append(doc.Entries, mongoEntry{
				Group:    group,
				Subgroup: sub,
				Values:   values,
				Complete: done[group][sub],
			})
		}
	}
	sort.Slice(doc.Entries, func(i, j int) bool {
		if doc.Entries[i].Group != doc.Entries[j].Group {
			return doc.Entries[i].Group < doc.Entries[j].Group
		}
		return doc.Entries[i].Subgroup < doc.Entries[j].Subgroup
	})
	return doc
}

func fromDocument(doc mongoDocument) *State {
	state := &State{
		Results:   make(map[string]map[string][]string),
		Completed: make(map[string][]string),
		UpdatedAt: doc.UpdatedAt,
	}
	for _, e := range doc.Entries {
		if state.Results[e.Group] == nil {
			state.Results[e.Group] = make(map[string][]string)
		}
		state.Results[e.Group][e.Subgroup] = e.Values
		if e.Complete {
			state.Completed[e.Group] = append(state.Completed[e.Group], e.Subgroup)
		}
	}
	return state
}
