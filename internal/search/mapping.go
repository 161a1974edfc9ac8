package search

const analysis = `"analysis": {
      "analyzer": {
        "russian": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "russian_stop", "russian_stemmer"]
        }
      },
      "filter": {
        "russian_stop": {"type": "stop", "stopwords": "_russian_"},
        "russian_stemmer": {"type": "stemmer", "language": "russian"}
      }
    }`

const fundsMapping = `{
  "settings": {
    ` + analysis + `
  },
  "mappings": {
    "properties": {
      "id": {"type": "long"},
      "name": {"type": "text", "analyzer": "russian", "fields": {"keyword": {"type": "keyword"}}},
      "description": {"type": "text", "analyzer": "russian"},
      "country_code": {"type": "keyword"},
      "purposes": {"type": "keyword"},
      "verified": {"type": "boolean"},
      "active": {"type": "boolean"},
      "website": {"type": "keyword"},
      "created_at": {"type": "date"},
      "updated_at": {"type": "date"}
    }
  }
}`

const campaignsMapping = `{
  "settings": {
    ` + analysis + `
  },
  "mappings": {
    "properties": {
      "id": {"type": "long"},
      "title": {"type": "text", "analyzer": "russian", "fields": {"keyword": {"type": "keyword"}}},
      "description": {"type": "text", "analyzer": "russian"},
      "category": {"type": "keyword"},
      "country_code": {"type": "keyword"},
      "goal_amount": {"type": "scaled_float", "scaling_factor": 100},
      "collected_amount": {"type": "scaled_float", "scaling_factor": 100},
      "participants_count": {"type": "integer"},
      "status": {"type": "keyword"},
      "owner_id": {"type": "keyword"},
      "fund_id": {"type": "long"},
      "end_date": {"type": "date"},
      "created_at": {"type": "date"},
      "updated_at": {"type": "date"}
    }
  }
}`
