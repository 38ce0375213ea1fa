package forge

// activityQuery pages pull requests, issues, releases and discussions in one
// request, each stream with its own cursor. Streams are ordered by update
// time descending so paging can stop as soon as a stream falls behind the
// window start.
const activityQuery = `
query ($owner: String!,
       $name: String!,
       $afterPR: String,
       $afterIssue: String,
       $afterRelease: String,
       $afterDiscussion: String) {
  repository(owner: $owner, name: $name) {
    pullRequests(first: 100,
                 orderBy: {field: UPDATED_AT, direction: DESC},
                 after: $afterPR) {
      pageInfo {
        hasNextPage
        endCursor
      }
      nodes {
        number
        title
        url
        createdAt
        updatedAt
        state
        merged
        mergedAt
        closedAt
        body
        author {
          login
        }
        comments(first: 100) {
          nodes {
            createdAt
            body
            author {
              login
            }
          }
        }
        reviews(first: 100) {
          nodes {
            createdAt
            body
            author {
              login
            }
          }
        }
        commits(last: 100) {
          nodes {
            commit {
              message
              committedDate
              author {
                name
              }
            }
          }
        }
      }
    }
    issues(first: 100,
           orderBy: {field: UPDATED_AT, direction: DESC},
           after: $afterIssue) {
      pageInfo {
        hasNextPage
        endCursor
      }
      nodes {
        number
        title
        url
        createdAt
        updatedAt
        state
        closedAt
        body
        author {
          login
        }
        comments(first: 100) {
          nodes {
            createdAt
            body
            author {
              login
            }
          }
        }
      }
    }
    releases(first: 100,
             orderBy: {field: CREATED_AT, direction: DESC},
             after: $afterRelease) {
      pageInfo {
        hasNextPage
        endCursor
      }
      nodes {
        name
        tagName
        createdAt
        publishedAt
        description
        url
      }
    }
    discussions(first: 100,
                orderBy: {field: UPDATED_AT, direction: DESC},
                after: $afterDiscussion) {
      pageInfo {
        hasNextPage
        endCursor
      }
      nodes {
        number
        title
        url
        createdAt
        updatedAt
        closedAt
        body
        author {
          login
        }
        category {
          name
        }
        comments(first: 100) {
          nodes {
            createdAt
            body
            author {
              login
            }
          }
        }
      }
    }
  }
}
`

// summariesQuery lists the newest discussions in a category; recap summaries
// are recognized by their metadata appendix.
const summariesQuery = `
query ($owner: String!, $name: String!, $categoryId: ID!, $count: Int!) {
  repository(owner: $owner, name: $name) {
    discussions(first: $count,
                categoryId: $categoryId,
                orderBy: {field: UPDATED_AT, direction: DESC}) {
      nodes {
        title
        body
        createdAt
      }
    }
  }
}
`

const categoriesQuery = `
query ($owner: String!, $name: String!) {
  repository(owner: $owner, name: $name) {
    discussionCategories(first: 100) {
      nodes {
        id
        name
      }
    }
  }
}
`

const repoQuery = `
query ($owner: String!, $name: String!) {
  repository(owner: $owner, name: $name) {
    id
    createdAt
  }
}
`

const createDiscussionMutation = `
mutation CreateDiscussion($input: CreateDiscussionInput!) {
  createDiscussion(input: $input) {
    discussion {
      id
      url
    }
  }
}
`

const createCategoryMutation = `
mutation CreateDiscussionCategory($input: CreateDiscussionCategoryInput!) {
  createDiscussionCategory(input: $input) {
    category {
      id
    }
  }
}
`
